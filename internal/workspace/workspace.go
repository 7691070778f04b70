// Package workspace implements workspace-scoped filesystem operations: listing,
// reading, searching, and mutation. All operations resolve paths against a
// single trusted workspace root and refuse to escape it.
package workspace

// file: internal/workspace/workspace.go

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
)

// ignoreSet is the static list of directory and file names excluded from
// listing and search traversal: version control, build output, dependency
// caches, and IDE state.
var ignoreSet = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"target":       {},
	"__pycache__":  {},
	".venv":        {},
	".idea":        {},
	".vscode":      {},
	".DS_Store":    {},
}

// Ignored reports whether name is excluded from traversal.
func Ignored(name string) bool {
	_, ok := ignoreSet[name]
	return ok
}

// EntryType classifies a directory entry.
type EntryType string

// Entry classifications.
const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// Entry is one element of a directory listing.
type Entry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// Workspace provides filesystem operations rooted at a trusted base directory.
type Workspace struct {
	root   string
	logger logging.Logger
}

// New creates a Workspace over root. An empty root is permitted at
// construction; every workspace-scoped call then fails its precondition.
func New(root string, logger logging.Logger) *Workspace {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Workspace{
		root:   root,
		logger: logger.WithField("component", "workspace"),
	}
}

// Root returns the workspace root, or "" when none is configured.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve resolves rel against the workspace root, rejecting escapes. It is
// the single containment gate for all workspace-scoped operations.
func (w *Workspace) Resolve(rel string) (string, error) {
	if w.root == "" {
		return "", mcperrors.NewPreconditionError("no workspace is open", nil, nil)
	}
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	cleanRoot := filepath.Clean(w.root)
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
		return "", mcperrors.NewValidationError("path escapes the workspace root", nil,
			map[string]any{"path": rel, "workspaceRoot": w.root})
	}
	return abs, nil
}

// ListFiles lists the directory at rel. With recursive set, it descends into
// each child directory, producing parent directories before their children and
// siblings in directory-listing order. Names in the ignore set are skipped at
// every level. Read failures on subdirectories are logged and treated as
// empty rather than aborting the whole listing.
func (w *Workspace) ListFiles(rel string, recursive bool) ([]Entry, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcperrors.NewNotFoundError("directory not found", err, map[string]any{"path": rel})
		}
		return nil, errors.Wrapf(err, "failed to stat directory: %s", rel)
	}
	if !info.IsDir() {
		return nil, mcperrors.NewValidationError("path is not a directory", nil, map[string]any{"path": rel})
	}

	var out []Entry
	w.appendListing(abs, normalizeRel(rel), recursive, true, &out)
	return out, nil
}

// normalizeRel normalizes rel to forward slashes for entry paths.
func normalizeRel(rel string) string {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "." {
		return ""
	}
	return rel
}

func (w *Workspace) appendListing(abs, rel string, recursive, top bool, out *[]Entry) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		// Unreadable subdirectories contribute no entries. Only the top-level
		// directory's readability was verified by the caller.
		if !top {
			w.logger.Warn("Skipping unreadable directory.", "path", abs, "error", err)
		}
		return
	}

	for _, e := range entries {
		name := e.Name()
		if Ignored(name) {
			continue
		}
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		if e.IsDir() {
			*out = append(*out, Entry{Path: childRel, Type: EntryDirectory})
			if recursive {
				w.appendListing(filepath.Join(abs, name), childRel, recursive, false, out)
			}
		} else {
			*out = append(*out, Entry{Path: childRel, Type: EntryFile})
		}
	}
}

// ReadFile reads the file at rel. With encoding "base64" the raw bytes are
// base64-encoded instead of decoded as text. A positive maxChars bounds the
// produced content length; exceeding it fails before any line slicing. When
// either startLine or endLine is non-negative, the inclusive 0-based line
// slice [max(startLine,0), min(endLine, lastLine)] is returned, with a
// negative endLine meaning the last line.
func (w *Workspace) ReadFile(rel, encoding string, maxChars, startLine, endLine int) (string, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", mcperrors.NewNotFoundError("file not found", err, map[string]any{"path": rel})
		}
		return "", errors.Wrapf(err, "failed to read file: %s", rel)
	}

	var content string
	if encoding == "base64" {
		content = base64.StdEncoding.EncodeToString(raw)
	} else {
		content = string(raw)
	}

	if maxChars > 0 && len(content) > maxChars {
		return "", mcperrors.NewValidationError("file exceeds the maximum character limit", nil,
			map[string]any{"path": rel, "length": len(content), "maxCharacters": maxChars})
	}

	if startLine >= 0 || endLine >= 0 {
		lines := strings.Split(content, "\n")
		last := len(lines) - 1
		from := startLine
		if from < 0 {
			from = 0
		}
		to := endLine
		if to < 0 || to > last {
			to = last
		}
		if from > last {
			return "", mcperrors.NewPreconditionError("start line is beyond the end of the file", nil,
				map[string]any{"path": rel, "startLine": startLine, "lastLine": last})
		}
		content = strings.Join(lines[from:to+1], "\n")
	}

	return content, nil
}

// Node is one element of the workspace structure tree. Directories carry
// Children; files carry Size and Extension.
type Node struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	Type      string  `json:"type"`
	Size      int64   `json:"size,omitempty"`
	Extension string  `json:"extension,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Structure builds the recursive tree of the whole workspace, filtered by the
// ignore set. Unreadable subtrees are represented as empty directories.
func (w *Workspace) Structure() (*Node, error) {
	if w.root == "" {
		return nil, mcperrors.NewPreconditionError("no workspace is open", nil, nil)
	}
	root := &Node{
		Name: filepath.Base(w.root),
		Path: "",
		Type: string(EntryDirectory),
	}
	w.fillNode(w.root, root)
	return root, nil
}

func (w *Workspace) fillNode(abs string, node *Node) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		w.logger.Warn("Skipping unreadable directory in structure.", "path", abs, "error", err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if Ignored(name) {
			continue
		}
		childPath := name
		if node.Path != "" {
			childPath = node.Path + "/" + name
		}
		child := &Node{Name: name, Path: childPath}
		if e.IsDir() {
			child.Type = string(EntryDirectory)
			w.fillNode(filepath.Join(abs, name), child)
		} else {
			child.Type = string(EntryFile)
			if info, err := e.Info(); err == nil {
				child.Size = info.Size()
			}
			child.Extension = strings.TrimPrefix(filepath.Ext(name), ".")
		}
		node.Children = append(node.Children, child)
	}
}
