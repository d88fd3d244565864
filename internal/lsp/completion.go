package lsp

import (
	"fmt"

	"graft/internal/completion"
)

const (
	completionItemKindFunction  = 3
	completionItemKindField     = 5
	completionItemKindClass     = 7
	completionItemKindKeyword   = 14
	completionItemKindReference = 18
)

// CompletionItems converts engine candidates, keeping their order.
func CompletionItems(items []completion.Item) []CompletionItem {
	out := make([]CompletionItem, 0, len(items))
	for i, it := range items {
		out = append(out, CompletionItem{
			Label:    it.Label,
			Kind:     completionKind(it.Kind),
			Detail:   it.Detail,
			SortText: fmt.Sprintf("%04d", i),
		})
	}
	return out
}

func completionKind(k completion.ItemKind) int {
	switch k {
	case completion.ItemField:
		return completionItemKindField
	case completion.ItemFragment:
		return completionItemKindReference
	case completion.ItemType:
		return completionItemKindClass
	case completion.ItemDirective:
		return completionItemKindFunction
	default:
		return completionItemKindKeyword
	}
}
