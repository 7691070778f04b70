// file: internal/workspace/mutate.go
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"

	"github.com/hostbridge/hostbridge/internal/mcperrors"
)

// lockFile acquires an advisory lock on the file at abs so concurrent
// mutations of the same path serialize. Locking creates the file when it is
// missing, so callers that require an existing file must stat first. The
// returned release function must be called exactly once.
func lockFile(abs string) (func(), error) {
	fl := flock.New(abs)
	if err := fl.Lock(); err != nil {
		return nil, errors.Wrapf(err, "failed to lock file: %s", abs)
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}

// CreateFile creates the file at rel with content, creating parent directories
// as needed. When the file already exists: overwrite replaces it,
// ignoreIfExists leaves it untouched and reports success, and otherwise the
// call fails without modifying the file.
func (w *Workspace) CreateFile(rel, content string, overwrite, ignoreIfExists bool) error {
	abs, err := w.Resolve(rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create parent directories for: %s", rel)
	}

	if !overwrite {
		f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				if ignoreIfExists {
					w.logger.Debug("File already exists, leaving it untouched.", "path", rel)
					return nil
				}
				return mcperrors.NewPreconditionError("file already exists", nil, map[string]any{"path": rel})
			}
			return errors.Wrapf(err, "failed to create file: %s", rel)
		}
		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "failed to write file: %s", rel)
		}
		return errors.Wrapf(f.Close(), "failed to close file: %s", rel)
	}

	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write file: %s", rel)
	}
	w.logger.Info("Created file.", "path", rel, "bytes", len(content))
	return nil
}

// ReplaceLines replaces the inclusive 0-based line range [startLine, endLine]
// of the file at rel with content. originalCode must match the current text of
// that range byte for byte; on mismatch the file is left unmodified and the
// error carries both the expected and actual text so the caller can re-read
// and retry.
func (w *Workspace) ReplaceLines(rel string, startLine, endLine int, content, originalCode string) error {
	abs, err := w.Resolve(rel)
	if err != nil {
		return err
	}

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return mcperrors.NewNotFoundError("file not found", err, map[string]any{"path": rel})
	}

	release, err := lockFile(abs)
	if err != nil {
		return err
	}
	defer release()

	raw, err := os.ReadFile(abs)
	if err != nil {
		return errors.Wrapf(err, "failed to read file: %s", rel)
	}

	lines := strings.Split(string(raw), "\n")
	if startLine < 0 || endLine < startLine || endLine >= len(lines) {
		return mcperrors.NewPreconditionError("line range is out of bounds", nil,
			map[string]any{"path": rel, "startLine": startLine, "endLine": endLine, "lineCount": len(lines)})
	}

	current := strings.Join(lines[startLine:endLine+1], "\n")
	if current != originalCode {
		return mcperrors.NewStaleStateError("file content does not match the expected original code", nil,
			map[string]any{"path": rel, "expected": originalCode, "actual": current})
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines[:startLine], "\n"))
	if startLine > 0 {
		b.WriteString("\n")
	}
	b.WriteString(content)
	if endLine < len(lines)-1 {
		b.WriteString("\n")
		b.WriteString(strings.Join(lines[endLine+1:], "\n"))
	}

	if err := os.WriteFile(abs, []byte(b.String()), fileMode(abs)); err != nil {
		return errors.Wrapf(err, "failed to write file: %s", rel)
	}
	w.logger.Info("Replaced lines.", "path", rel, "startLine", startLine, "endLine", endLine)
	return nil
}

// TypeInto inserts content into the file at rel one character at a time,
// sleeping delay between characters so the edit is observable as it happens.
// A non-negative line selects the 0-based insertion line, clamped to the file;
// column is clamped to that line; a negative line inserts at end of file. The
// file is rewritten after every character, so a failure partway through leaves
// exactly the characters inserted so far.
func (w *Workspace) TypeInto(ctx context.Context, rel, content string, delay time.Duration, line, column int) error {
	abs, err := w.Resolve(rel)
	if err != nil {
		return err
	}

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return mcperrors.NewNotFoundError("file not found", err, map[string]any{"path": rel})
	}

	release, err := lockFile(abs)
	if err != nil {
		return err
	}
	defer release()

	raw, err := os.ReadFile(abs)
	if err != nil {
		return errors.Wrapf(err, "failed to read file: %s", rel)
	}

	text := string(raw)
	offset := insertionOffset(text, line, column)
	mode := fileMode(abs)

	for i, r := range content {
		if err := ctx.Err(); err != nil {
			return mcperrors.NewTimeoutError("typing interrupted", err,
				map[string]any{"path": rel, "inserted": i, "total": len(content)})
		}
		text = text[:offset] + string(r) + text[offset:]
		offset += len(string(r))
		if err := os.WriteFile(abs, []byte(text), mode); err != nil {
			return errors.Wrapf(err, "failed to write file: %s", rel)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	w.logger.Info("Typed content into file.", "path", rel, "characters", len(content))
	return nil
}

// insertionOffset converts a 0-based line and column, clamped to the document,
// into a byte offset in text. A negative line means end of file.
func insertionOffset(text string, line, column int) int {
	if line < 0 {
		return len(text)
	}
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		line = len(lines) - 1
	}
	if column < 0 {
		column = 0
	}
	if column > len(lines[line]) {
		column = len(lines[line])
	}
	offset := 0
	for i := 0; i < line; i++ {
		offset += len(lines[i]) + 1
	}
	return offset + column
}

// fileMode returns the existing mode of abs, or a default for new files.
func fileMode(abs string) os.FileMode {
	if info, err := os.Stat(abs); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}
