package completion

import (
	"sort"
	"strings"

	"graft/internal/compiler"
	"graft/internal/schema"
)

// ItemKind classifies a candidate.
type ItemKind uint8

const (
	ItemField ItemKind = iota
	ItemFragment
	ItemType
	ItemKeyword
	ItemDirective
)

type Item struct {
	Label  string
	Kind   ItemKind
	Detail string
}

var (
	topLevelKeywords     = []string{"query", "mutation", "subscription", "fragment"}
	executableDirectives = []string{"include", "skip"}
)

// Engine produces candidates from a schema and the last good programs.
type Engine struct{}

// Complete returns candidates for req filtered by its prefix. programs may
// be nil, in which case fragment candidates are omitted.
func (Engine) Complete(req Request, s *schema.Schema, programs *compiler.Programs) []Item {
	var items []Item
	switch req.Kind {
	case KindTopLevel:
		for _, kw := range topLevelKeywords {
			items = append(items, Item{Label: kw, Kind: ItemKeyword})
		}
	case KindDirective:
		for _, d := range executableDirectives {
			items = append(items, Item{Label: d, Kind: ItemDirective})
		}
	case KindTypeCondition:
		for _, name := range s.TypeNames() {
			if t, _ := s.Type(name); t.IsComposite() {
				items = append(items, Item{Label: name, Kind: ItemType, Detail: t.Kind.String()})
			}
		}
	case KindFragmentSpread:
		items = append(items, Item{Label: "on", Kind: ItemKeyword})
		if programs != nil {
			for _, name := range programs.Source.FragmentNames() {
				f, _ := programs.Source.Fragment(name)
				items = append(items, Item{Label: name, Kind: ItemFragment, Detail: "on " + f.Def.TypeCondition.Value})
			}
		}
	case KindField:
		parent, ok := resolveParent(req, s)
		if !ok {
			return nil
		}
		for _, name := range parent.FieldNames() {
			f, _ := parent.Field(name)
			items = append(items, Item{Label: name, Kind: ItemField, Detail: f.Type.String()})
		}
		if parent.IsComposite() {
			items = append(items, Item{Label: schema.TypenameField, Kind: ItemField, Detail: "String!"})
		}
	}
	return filterPrefix(items, req.Prefix)
}

// resolveParent walks req.Steps from the root type to the type whose
// selection set holds the cursor.
func resolveParent(req Request, s *schema.Schema) (*schema.Type, bool) {
	var t *schema.Type
	var ok bool
	if req.RootType != "" {
		t, ok = s.Type(req.RootType)
	} else {
		t, ok = s.RootType(req.Operation)
	}
	if !ok {
		return nil, false
	}
	for _, step := range req.Steps {
		if step.TypeCondition != "" {
			if t, ok = s.Type(step.TypeCondition); !ok {
				return nil, false
			}
			continue
		}
		f, found := t.Field(step.Field)
		if !found {
			return nil, false
		}
		if t, ok = s.Type(f.Type.NamedType()); !ok {
			return nil, false
		}
	}
	return t, t.IsComposite()
}

func filterPrefix(items []Item, prefix string) []Item {
	if prefix == "" {
		return items
	}
	lower := strings.ToLower(prefix)
	out := items[:0]
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Label), lower) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.HasPrefix(out[i].Label, prefix) && !strings.HasPrefix(out[j].Label, prefix)
	})
	return out
}
