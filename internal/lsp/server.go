package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures the transport.
type ServerOptions struct {
	Name    string
	Version string
	Logger  *slog.Logger
	// Buffer is the capacity of the bridge channel.
	Buffer int
}

// Server reads the editor's stdio stream. It answers lifecycle requests
// itself and forwards document sync and completion as BridgeMessages.
type Server struct {
	in       *bufio.Reader
	conn     *Connection
	messages chan BridgeMessage
	log      *slog.Logger
	info     serverInfo

	initialized       bool
	shutdownRequested bool
	workspaceRoot     string
}

func NewServer(in io.Reader, conn *Connection, opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	name := opts.Name
	if name == "" {
		name = "graft"
	}
	return &Server{
		in:       bufio.NewReader(in),
		conn:     conn,
		messages: make(chan BridgeMessage, buffer),
		log:      log,
		info:     serverInfo{Name: name, Version: opts.Version},
	}
}

// Messages is closed when Run returns.
func (s *Server) Messages() <-chan BridgeMessage { return s.messages }

// WorkspaceRoot returns the root reported by the client in initialize.
func (s *Server) WorkspaceRoot() string { return s.workspaceRoot }

type readResult struct {
	payload []byte
	err     error
}

// Run serves until the stream ends, the client exits or ctx is done. It
// returns nil on end of input and ErrExit or ErrExitWithoutShutdown on exit.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.messages)

	// The read blocks on stdin and cannot observe ctx, so it runs apart.
	reads := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			payload, err := readMessage(s.in)
			select {
			case reads <- readResult{payload: payload, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var res readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res = <-reads:
		}
		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return nil
			}
			return res.err
		}
		var msg rpcMessage
		if err := json.Unmarshal(res.payload, &msg); err != nil {
			s.log.Warn("lsp: failed to parse message", "error", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(ctx, &msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *rpcMessage) error {
	id := RequestID(msg.ID)
	isRequest := len(msg.ID) > 0

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(id, msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	}
	if !s.initialized {
		if isRequest {
			return s.conn.sendError(id, codeServerNotInitialized, "server not initialized")
		}
		return nil
	}
	if s.shutdownRequested {
		if isRequest {
			return s.conn.sendError(id, codeInvalidRequest, "server is shutting down")
		}
		return nil
	}

	switch msg.Method {
	case "initialized":
		return nil
	case "shutdown":
		s.shutdownRequested = true
		return s.conn.sendResponse(id, nil)
	case "textDocument/didOpen":
		var params DidOpenTextDocumentParams
		if !s.decode(msg, &params) {
			return nil
		}
		return s.forward(ctx, DidOpenTextDocument{Params: params})
	case "textDocument/didChange":
		var params DidChangeTextDocumentParams
		if !s.decode(msg, &params) {
			return nil
		}
		return s.forward(ctx, DidChangeTextDocument{Params: params})
	case "textDocument/didClose":
		var params DidCloseTextDocumentParams
		if !s.decode(msg, &params) {
			return nil
		}
		return s.forward(ctx, DidCloseTextDocument{Params: params})
	case "textDocument/completion":
		var params CompletionParams
		if !s.decode(msg, &params) {
			return s.conn.sendError(id, codeInvalidParams, "invalid params")
		}
		return s.forward(ctx, CompletionRequest{Params: params, RequestID: id})
	default:
		if isRequest {
			return s.conn.sendError(id, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) decode(msg *rpcMessage, v any) bool {
	if err := json.Unmarshal(msg.Params, v); err != nil {
		s.log.Warn("lsp: invalid params", "method", msg.Method, "error", err)
		return false
	}
	return true
}

func (s *Server) forward(ctx context.Context, m BridgeMessage) error {
	select {
	case s.messages <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleInitialize(id RequestID, msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.conn.sendError(id, codeInvalidParams, "invalid params")
		}
	}
	root := URIToPath(params.RootURI)
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = URIToPath(params.WorkspaceFolders[0].URI)
	}
	s.workspaceRoot = root
	s.initialized = true
	s.log.Info("lsp: initialize", "root", root)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
			},
			CompletionProvider: &completionOptions{
				TriggerCharacters: []string{"{", "@", "."},
			},
		},
		ServerInfo: &s.info,
	}
	return s.conn.sendResponse(id, result)
}
