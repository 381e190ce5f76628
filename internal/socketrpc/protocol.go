package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.ReadAPI over a Unix domain socket.
// Requests and responses are newline-delimited JSON.
//
//   Method            Params                              Result
//   ──────────────    ─────────────────────────────────   ───────────
//   FetchLives        {Cursor: string, Limit: int}        model.Page
//   TotalLiveCount    (none)                              int64
//
// An empty Cursor requests the first page. FetchLives accepts empty or null
// params and then uses the default page size.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (query failure)
//   -32001  Invalid cursor

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeApplication    = -32000
	codeInvalidCursor  = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/livelist/livelist.sock, falling back to
// ~/.local/state/livelist/livelist.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "livelist", "livelist.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/livelist.sock"
	}
	return filepath.Join(home, ".local", "state", "livelist", "livelist.sock")
}
