package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinytelemetry/livelist/internal/model"
)

const (
	// scannerInitBufSize is the initial buffer size for the per-connection scanner (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize is the maximum token size the scanner will accept (10 MB).
	scannerMaxTokenSize = 10 * 1024 * 1024
)

// Server exposes a model.ReadAPI over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath     string
	store          model.ReadAPI
	maxPageSize    int
	requestTimeout time.Duration
	listener       net.Listener
	wg             sync.WaitGroup
	quit           chan struct{}
	stopOnce       sync.Once
	done           chan error

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer creates a new socket RPC server.
func NewServer(socketPath string, store model.ReadAPI) *Server {
	return &Server{
		socketPath:     socketPath,
		store:          store,
		maxPageSize:    model.DefaultMaxPageSize,
		requestTimeout: model.DefaultRequestTimeout,
		quit:           make(chan struct{}),
		done:           make(chan error, 1),
		conns:          make(map[net.Conn]struct{}),
	}
}

// SetMaxPageSize caps the limit a client may request per page.
func (s *Server) SetMaxPageSize(n int) {
	if n > 0 {
		s.maxPageSize = n
	}
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	// Remove stale socket if it exists.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			// Socket file exists but nobody is listening, so it is stale.
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another server is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("socketrpc: listening on %s", s.socketPath)
	return nil
}

// Stop closes the listener and every open connection, waits for handlers to
// return, and removes the socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.connMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connMu.Unlock()
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				s.done <- nil
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.done <- fmt.Errorf("socketrpc: accept: %w", err)
				return
			}
			log.Printf("socketrpc: accept error: %v", err)
			// Continue on transient errors (e.g., fd limit) instead of
			// killing the entire accept loop.
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Wait blocks until the server stops accepting connections. It returns nil
// after Stop and the accept error when the listener failed. It returns nil at
// once when the server was never started.
func (s *Server) Wait() error {
	if s.listener == nil {
		return nil
	}
	return <-s.done
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.connMu.Lock()
	select {
	case <-s.quit:
		s.connMu.Unlock()
		return
	default:
	}
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		select {
		case <-s.quit:
			return
		default:
		}

		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp := Response{JSONRPC: "2.0", ID: 0, Error: &RPCError{Code: codeParseError, Message: "parse error"}}
			encoder.Encode(resp)
			continue
		}

		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v interface{}, err error) Response {
		if err != nil {
			code := codeApplication
			if errors.Is(err, model.ErrInvalidCursor) {
				code = codeInvalidCursor
			}
			resp.Error = &RPCError{Code: code, Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: codeInternal, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	switch req.Method {
	case "FetchLives":
		var p struct {
			Cursor string
			Limit  int
		}
		// Allow empty/null params for the first page; only reject genuinely malformed JSON.
		if err := json.Unmarshal(req.Params, &p); err != nil && len(req.Params) > 0 {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
			return resp
		}
		if p.Limit <= 0 {
			p.Limit = model.DefaultPageSize
		}
		p.Limit = min(p.Limit, s.maxPageSize)

		ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
		defer cancel()
		return marshalResult(s.store.FetchLives(ctx, p.Cursor, p.Limit))

	case "TotalLiveCount":
		return marshalResult(s.store.TotalLiveCount())

	default:
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}
