package lspcompiler

import (
	"graft/internal/config"
)

// ProjectResolver binds a document path to the project that serves its
// completion requests.
type ProjectResolver interface {
	Resolve(path string) (config.ProjectName, bool)
}

// ResolverFunc adapts a function to ProjectResolver.
type ResolverFunc func(path string) (config.ProjectName, bool)

func (f ResolverFunc) Resolve(path string) (config.ProjectName, bool) { return f(path) }

// FixedProject serves every request from name.
func FixedProject(name config.ProjectName) ProjectResolver {
	return ResolverFunc(func(string) (config.ProjectName, bool) { return name, true })
}

// ProjectByRoot picks the project with the deepest root containing the
// document. Documents outside every root use fallback when it is set. In
// single-project mode the only project serves every document.
func ProjectByRoot(cfg *config.Config, fallback *config.ProjectName) ProjectResolver {
	return ResolverFunc(func(path string) (config.ProjectName, bool) {
		if cfg.OnlyProject != nil {
			return *cfg.OnlyProject, true
		}
		var best *config.ProjectConfig
		if path != "" {
			for _, pc := range cfg.ProjectsContaining(path) {
				if best == nil || len(pc.Root) > len(best.Root) {
					best = pc
				}
			}
		}
		if best != nil {
			return best.Name, true
		}
		if fallback != nil {
			return *fallback, true
		}
		return 0, false
	})
}
