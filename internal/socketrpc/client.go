package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/livelist/internal/model"
)

const (
	dialTimeout        = 5 * time.Second
	defaultCallTimeout = 30 * time.Second
)

// Client implements model.LiveSource over a Unix domain socket using JSON-RPC 2.0.
// The connection is opened on first use and reopened after any I/O failure,
// so a retry after the server restarts succeeds.
type Client struct {
	socketPath string

	mu      sync.Mutex
	conn    net.Conn
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// New returns a client that connects lazily.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	c := New(socketPath)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	c.conn = conn
	c.scanner = scanner
	c.encoder = json.NewEncoder(conn)
	return nil
}

func (c *Client) resetLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.scanner = nil
	c.encoder = nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return err
		}
	}

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCallTimeout)
	}
	c.conn.SetDeadline(deadline)
	defer func() {
		if c.conn != nil {
			c.conn.SetDeadline(time.Time{})
		}
	}()

	if err := c.encoder.Encode(req); err != nil {
		c.resetLocked()
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		err := c.scanner.Err()
		c.resetLocked()
		if err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: read: %w", &net.OpError{Op: "read", Net: "unix", Err: io.EOF})
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		c.resetLocked()
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.ID != id {
		c.resetLocked()
		return fmt.Errorf("socketrpc: response id %d does not match request %d", resp.ID, id)
	}

	if resp.Error != nil {
		if resp.Error.Code == codeInvalidCursor {
			return fmt.Errorf("%w: %s", model.ErrInvalidCursor, resp.Error.Message)
		}
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

// FetchLives requests one page of the feed.
func (c *Client) FetchLives(ctx context.Context, cursor string, limit int) (model.Page, error) {
	var result model.Page
	err := c.call(ctx, "FetchLives", map[string]interface{}{"Cursor": cursor, "Limit": limit}, &result)
	return result, err
}

// TotalLiveCount returns the number of lives on the feed.
func (c *Client) TotalLiveCount() (int64, error) {
	var result int64
	err := c.call(context.Background(), "TotalLiveCount", map[string]interface{}{}, &result)
	return result, err
}
