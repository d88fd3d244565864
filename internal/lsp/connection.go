package lsp

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// Connection writes framed JSON-RPC messages to the editor. It is safe for
// concurrent use; the transport and the orchestrator share it.
type Connection struct {
	mu  sync.Mutex
	out *bufio.Writer
	log *slog.Logger
}

func NewConnection(w io.Writer, log *slog.Logger) *Connection {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Connection{out: bufio.NewWriter(w), log: log}
}

// PublishDiagnostics replaces the diagnostics shown for uri. A nil list
// clears them.
func (c *Connection) PublishDiagnostics(uri string, diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	return c.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": publishDiagnosticsParams{
			URI:         uri,
			Diagnostics: diags,
		},
	})
}

// SendCompletion answers completion request id.
func (c *Connection) SendCompletion(id RequestID, items []CompletionItem) error {
	return c.sendResponse(id, CompletionList{IsIncomplete: false, Items: items})
}

func (c *Connection) sendResponse(id RequestID, result any) error {
	return c.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (c *Connection) sendError(id RequestID, code int, message string) error {
	return c.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	})
}

func (c *Connection) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeMessage(c.out, payload); err != nil {
		c.log.Warn("lsp: write failed", "error", err)
		return err
	}
	return c.out.Flush()
}
