// Package diag defines the diagnostic model shared by the parser, the schema
// builder and the project validator.
//
// Diagnostic is the central record: a severity, a compact numeric Code with a
// stable string ID, a short message and the primary source.Location. Notes
// add secondary locations. Bag collects diagnostics with an optional limit and
// gives them a deterministic order.
//
// Package diag does not perform formatting or IO. Editor conversion lives in
// internal/lsp; terminal rendering lives in cmd/graft.
package diag
