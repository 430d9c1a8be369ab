// Package tabs opens changed files as editor documents and closes the ones
// it opened, leaving documents the user opened alone.
package tabs

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
)

// Errors returned by hosts.
var (
	// ErrNotText indicates the file cannot be decoded as text.
	ErrNotText = errors.New("not a text document")

	// ErrNoActiveDocument indicates there is no active document to act on.
	ErrNoActiveDocument = errors.New("no active document")
)

// Document is an open document handle.
type Document struct {
	// URI is the document identity (file:// URI of its path).
	URI string

	// Path is the absolute filesystem path.
	Path string
}

// ShowOptions controls how a document is shown.
type ShowOptions struct {
	// Preview opens the document in a reusable preview tab.
	Preview bool

	// Focus makes the document the active one.
	Focus bool
}

// Tab is one editor tab.
type Tab struct {
	URI    string
	Pinned bool
}

// TabGroup is a set of tabs shown together.
type TabGroup struct {
	Tabs []Tab
}

// Host is the editor capability set the reconciler depends on.
type Host interface {
	OpenDocument(ctx context.Context, path string) (Document, error)
	ShowDocument(ctx context.Context, doc Document, opts ShowOptions) error
	PinActiveDocument(ctx context.Context) error
	TabGroups(ctx context.Context) ([]TabGroup, error)
	CloseTabs(ctx context.Context, tabs []Tab) error
	ActiveDocumentURI(ctx context.Context) (string, error)
}

// URIForPath returns the document identity of an absolute path.
func URIForPath(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// Probe reports whether repo-relative paths open as text documents in a host.
// It satisfies filter.TextProbe.
type Probe struct {
	Host Host
	Root string
}

// IsText reports whether the file opens as a document.
func (p Probe) IsText(ctx context.Context, relPath string) bool {
	_, err := p.Host.OpenDocument(ctx, filepath.Join(p.Root, filepath.FromSlash(relPath)))
	return err == nil
}
