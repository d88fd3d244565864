package lsp

import (
	"net/url"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// URIToPath converts a file URI to an absolute, NFC-normalized path with
// symlinks in its directory part resolved, matching how project roots are
// resolved. Other schemes yield "".
func URIToPath(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" && parsed.Scheme != "file" {
		return ""
	}
	path := parsed.Path
	if parsed.Scheme == "" {
		path = uri
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	path = filepath.FromSlash(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	dir, base := filepath.Split(path)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		path = filepath.Join(resolved, base)
	}
	return norm.NFC.String(path)
}

// PathToURI converts a path to a file URI.
func PathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(norm.NFC.String(path))}
	return u.String()
}

// CanonicalURI is the document cache key for uri. Editors disagree on
// percent-encoding and Unicode normalization of the same file, so file URIs
// are rebuilt from their path.
func CanonicalURI(uri string) string {
	if path := URIToPath(uri); path != "" {
		return PathToURI(path)
	}
	return norm.NFC.String(uri)
}
