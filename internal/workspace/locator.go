// file: internal/workspace/locator.go
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hostbridge/hostbridge/internal/logging"
)

// SweepDepth bounds how far the fallback sweep descends below each of its
// starting directories.
const SweepDepth = 3

// ScopedResult is the outcome of the workspace-scoped search phase. Unavailable
// means the phase could not run at all, as opposed to running and finding
// nothing.
type ScopedResult struct {
	Unavailable bool
	Matches     []string
}

// FindFiles locates files named filename in two phases. Phase one searches the
// workspace subtree rooted at rel. Only when that phase is unavailable or
// finds nothing does phase two sweep a fixed set of likely directories
// concurrently, each to a bounded depth. Results are absolute paths,
// deduplicated and sorted lexically.
func (w *Workspace) FindFiles(ctx context.Context, rel, filename string) ([]string, error) {
	scoped := w.searchScoped(rel, filename)
	if !scoped.Unavailable && len(scoped.Matches) > 0 {
		return finishMatches(scoped.Matches), nil
	}

	matches, err := Sweep(ctx, DefaultSweepRoots(), filename, SweepDepth, w.logger)
	if err != nil {
		return nil, err
	}
	return finishMatches(matches), nil
}

// searchScoped runs the workspace-scoped phase. A file matches when its base
// name equals filename or its workspace-relative path contains filename as a
// substring. The search visits the entire subtree without halting early.
func (w *Workspace) searchScoped(rel, filename string) ScopedResult {
	abs, err := w.Resolve(rel)
	if err != nil {
		return ScopedResult{Unavailable: true}
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return ScopedResult{Unavailable: true}
	}

	var matches []string
	w.scanScoped(abs, normalizeRel(rel), filename, &matches)
	return ScopedResult{Matches: matches}
}

func (w *Workspace) scanScoped(abs, rel, filename string, matches *[]string) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		w.logger.Debug("Skipping unreadable directory during search.", "path", abs, "error", err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if Ignored(name) {
			continue
		}
		childAbs := filepath.Join(abs, name)
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		if e.IsDir() {
			w.scanScoped(childAbs, childRel, filename, matches)
			continue
		}
		if name == filename || strings.Contains(childRel, filename) {
			*matches = append(*matches, childAbs)
		}
	}
}

// DefaultSweepRoots returns the fallback sweep's starting directories: the
// working directory, its parent and grandparent, and the user's home, Desktop,
// and Documents directories. Unresolvable entries are omitted.
func DefaultSweepRoots() []string {
	var roots []string
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd, filepath.Dir(cwd), filepath.Dir(filepath.Dir(cwd)))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			home,
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "Documents"),
		)
	}
	return roots
}

// Sweep searches each root concurrently for files whose base name contains
// filename, descending at most maxDepth levels. Permission and read errors
// are swallowed per subtree so one unreadable directory never aborts the
// sweep. Returned paths are absolute and may contain duplicates when roots
// overlap.
func Sweep(ctx context.Context, roots []string, filename string, maxDepth int, logger logging.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	var mu sync.Mutex
	var matches []string

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range roots {
		root := root
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var found []string
			sweepDir(root, filename, maxDepth, &found, logger)
			mu.Lock()
			matches = append(matches, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

func sweepDir(dir, filename string, depth int, found *[]string, logger logging.Logger) {
	if depth < 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("Skipping unreadable directory during sweep.", "path", dir, "error", err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if Ignored(name) {
			continue
		}
		child := filepath.Join(dir, name)
		if e.IsDir() {
			sweepDir(child, filename, depth-1, found, logger)
			continue
		}
		if strings.Contains(name, filename) {
			*found = append(*found, child)
		}
	}
}

// finishMatches deduplicates and lexically sorts the combined match set.
func finishMatches(matches []string) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
