package tabs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Workbench is an in-memory Host. It keeps tab groups, an active document
// and pinned state the way an editor window does, and reads files from disk
// to decide whether they open as text.
type Workbench struct {
	mu     sync.Mutex
	groups [][]Tab
	active int
	focus  string

	readFile func(string) ([]byte, error)
}

// NewWorkbench creates a workbench with a single empty tab group.
func NewWorkbench() *Workbench {
	return &Workbench{
		groups:   [][]Tab{nil},
		readFile: os.ReadFile,
	}
}

// AddGroup appends an empty tab group and makes it the active group.
func (w *Workbench) AddGroup() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.groups = append(w.groups, nil)
	w.active = len(w.groups) - 1
}

// AddUserTab opens a tab as if the user had, without tracking.
func (w *Workbench) AddUserTab(uri string, pinned bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.groups[w.active] = append(w.groups[w.active], Tab{URI: uri, Pinned: pinned})
}

// OpenDocument loads the file at path and returns a handle when it decodes
// as text. It does not show a tab.
func (w *Workbench) OpenDocument(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	data, err := w.readFile(path)
	if err != nil {
		return Document{}, err
	}
	if _, err := DecodeText(data); err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return Document{URI: URIForPath(path), Path: path}, nil
}

// ShowDocument shows doc in the active group, adding a tab unless one
// already exists there.
func (w *Workbench) ShowDocument(ctx context.Context, doc Document, opts ShowOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	group := w.groups[w.active]
	if indexOf(group, doc.URI) < 0 {
		w.groups[w.active] = append(group, Tab{URI: doc.URI})
	}
	if opts.Focus {
		w.focus = doc.URI
	}
	return nil
}

// PinActiveDocument pins the tab of the active document.
func (w *Workbench) PinActiveDocument(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.focus == "" {
		return ErrNoActiveDocument
	}
	for g := range w.groups {
		if i := indexOf(w.groups[g], w.focus); i >= 0 {
			w.groups[g][i].Pinned = true
			return nil
		}
	}
	return ErrNoActiveDocument
}

// TabGroups returns a snapshot of every tab group.
func (w *Workbench) TabGroups(ctx context.Context) ([]TabGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]TabGroup, len(w.groups))
	for i, tabs := range w.groups {
		out[i] = TabGroup{Tabs: append([]Tab(nil), tabs...)}
	}
	return out, nil
}

// CloseTabs closes the given tabs wherever they are shown.
func (w *Workbench) CloseTabs(ctx context.Context, tabs []Tab) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	closing := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		closing[t.URI] = true
	}

	for g, group := range w.groups {
		kept := group[:0]
		for _, t := range group {
			if !closing[t.URI] {
				kept = append(kept, t)
			}
		}
		w.groups[g] = kept
	}
	if closing[w.focus] {
		w.focus = ""
	}
	return nil
}

// ActiveDocumentURI returns the URI of the active document, or "" when no
// document is active.
func (w *Workbench) ActiveDocumentURI(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focus, nil
}

func indexOf(tabs []Tab, uri string) int {
	for i, t := range tabs {
		if t.URI == uri {
			return i
		}
	}
	return -1
}

// DecodeText decodes file contents as text. UTF-16 input must carry a byte
// order mark; everything else must be valid UTF-8. Contents with NUL
// characters are binary.
func DecodeText(data []byte) ([]byte, error) {
	text := data
	if hasUTF16BOM(data) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return nil, ErrNotText
		}
		text = decoded
	} else {
		text = bytes.TrimPrefix(text, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(text) {
			return nil, ErrNotText
		}
	}

	if bytes.IndexByte(text, 0) >= 0 {
		return nil, ErrNotText
	}
	return text, nil
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 &&
		((data[0] == 0xfe && data[1] == 0xff) || (data[0] == 0xff && data[1] == 0xfe))
}
