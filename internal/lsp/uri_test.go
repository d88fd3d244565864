package lsp

import (
	"os"
	"path/filepath"
	"testing"
)

// tempDir returns a temporary directory with symlinks resolved.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	return dir
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(tempDir(t), "dir with space", "q.graphql")
	uri := PathToURI(path)
	if got := URIToPath(uri); got != path {
		t.Fatalf("round trip: got %q, want %q", got, path)
	}
}

func TestCanonicalURINormalizesForm(t *testing.T) {
	dir := tempDir(t)
	composed := PathToURI(filepath.Join(dir, "caf\u00e9.graphql"))
	decomposed := "file://" + filepath.ToSlash(filepath.Join(dir, "cafe\u0301.graphql"))
	if CanonicalURI(decomposed) != CanonicalURI(composed) {
		t.Fatalf("keys differ: %q vs %q", CanonicalURI(decomposed), CanonicalURI(composed))
	}
	escaped := "file://" + filepath.ToSlash(dir) + "/caf%C3%A9.graphql"
	if CanonicalURI(escaped) != CanonicalURI(composed) {
		t.Fatalf("escaped key differs: %q", CanonicalURI(escaped))
	}
}

func TestURIToPathRejectsOtherSchemes(t *testing.T) {
	if got := URIToPath("untitled:Untitled-1"); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
	if got := CanonicalURI("untitled:Untitled-1"); got != "untitled:Untitled-1" {
		t.Fatalf("non-file uri changed: %q", got)
	}
}

func TestURIToPathResolvesSymlinkedDirectory(t *testing.T) {
	target := filepath.Join(tempDir(t), "workspace")
	if err := os.MkdirAll(filepath.Join(target, "web"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(tempDir(t), "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	want := filepath.Join(target, "web", "q.graphql")
	if got := URIToPath(PathToURI(filepath.Join(link, "web", "q.graphql"))); got != want {
		t.Fatalf("URIToPath = %q, want %q", got, want)
	}
	if CanonicalURI(PathToURI(filepath.Join(link, "web", "q.graphql"))) != PathToURI(want) {
		t.Fatalf("symlinked and real paths have different keys")
	}
}
