package lsp

// BridgeMessage is an editor message handed from the transport to the
// orchestrator. The set is closed: CompletionRequest, DidOpenTextDocument,
// DidChangeTextDocument and DidCloseTextDocument.
type BridgeMessage interface {
	bridgeMessage()
}

type CompletionRequest struct {
	Params    CompletionParams
	RequestID RequestID
}

type DidOpenTextDocument struct {
	Params DidOpenTextDocumentParams
}

type DidChangeTextDocument struct {
	Params DidChangeTextDocumentParams
}

type DidCloseTextDocument struct {
	Params DidCloseTextDocumentParams
}

func (CompletionRequest) bridgeMessage()     {}
func (DidOpenTextDocument) bridgeMessage()   {}
func (DidChangeTextDocument) bridgeMessage() {}
func (DidCloseTextDocument) bridgeMessage()  {}
