package lspcompiler

import (
	"fmt"
	"sort"

	"graft/internal/completion"
	"graft/internal/lsp"
	"graft/internal/metrics"
)

func (c *Compiler) onBridgeMessage(msg lsp.BridgeMessage) {
	switch m := msg.(type) {
	case lsp.CompletionRequest:
		c.onCompletion(m)
	case lsp.DidOpenTextDocument:
		c.documents.Open(m.Params)
	case lsp.DidChangeTextDocument:
		c.documents.Change(m.Params)
	case lsp.DidCloseTextDocument:
		c.documents.Close(m.Params)
	default:
		panic(fmt.Sprintf("unexpected bridge message %T", msg))
	}
}

// onCompletion answers a completion request from the adopted programs. A
// request with no synced document, no project or no programs gets no
// response.
func (c *Compiler) onCompletion(m lsp.CompletionRequest) {
	uri := m.Params.TextDocument.URI
	text, ok := c.documents.Text(uri)
	if !ok {
		c.metrics.Completion(metrics.CompletionNoDocument)
		return
	}
	path := lsp.URIToPath(uri)
	req, ok := completion.NewRequest(path, text, m.Params.Position)
	if !ok {
		c.metrics.Completion(metrics.CompletionEmpty)
		return
	}
	name, ok := c.resolver.Resolve(path)
	if !ok {
		c.metrics.Completion(metrics.CompletionNoProject)
		return
	}
	c.log.Debug("completion request", "project", name.String(), "programs", c.programKeys())

	s, ok := c.schemas[name]
	if !ok {
		panic(fmt.Sprintf("no schema for project %s", name))
	}
	programs, ok := c.programs[name]
	c.log.Debug("completion programs", "present", ok)
	if !ok {
		c.metrics.Completion(metrics.CompletionNoPrograms)
		return
	}

	items := c.completer.Complete(req, s, programs)
	if len(items) == 0 {
		c.metrics.Completion(metrics.CompletionEmpty)
		return
	}
	if err := c.conn.SendCompletion(m.RequestID, lsp.CompletionItems(items)); err != nil {
		c.log.Warn("failed to send completion", "request", m.RequestID.String(), "error", err)
		return
	}
	c.metrics.Completion(metrics.CompletionSent)
}

func (c *Compiler) programKeys() []string {
	keys := make([]string, 0, len(c.programs))
	for name := range c.programs {
		keys = append(keys, name.String())
	}
	sort.Strings(keys)
	return keys
}
