// Package shell runs commands for the shell execution tool. Commands run
// inside a persistent session so consecutive invocations share an identity,
// and each execution races against a hard timeout.
package shell

// file: internal/shell/shell.go

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
)

// DefaultTimeout bounds command execution when the caller supplies none.
const DefaultTimeout = 30 * time.Second

// Session is a persistent execution context. It carries a stable identifier
// and the directory the previous command ran in.
type Session struct {
	ID  string
	Dir string
}

// Result is the outcome of one command execution.
type Result struct {
	SessionID string
	Command   string
	Output    string
	Captured  bool
	ExitCode  int
}

// Runner executes shell commands. captureOutput reflects whether the host can
// stream output from the running session; without it commands are dispatched
// fire-and-forget.
type Runner struct {
	logger         logging.Logger
	defaultTimeout time.Duration
	captureOutput  bool

	mu      sync.Mutex
	session *Session
}

// Option configures a Runner.
type Option func(*Runner)

// WithDefaultTimeout overrides the fallback execution timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runner) { r.defaultTimeout = d }
}

// WithoutCapture disables output streaming. Commands are still executed, but
// results report that output was not captured.
func WithoutCapture() Option {
	return func(r *Runner) { r.captureOutput = false }
}

// NewRunner creates a Runner.
func NewRunner(logger logging.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	r := &Runner{
		logger:         logger.WithField("component", "shell"),
		defaultTimeout: DefaultTimeout,
		captureOutput:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// currentSession returns the persistent session, creating it on first use.
func (r *Runner) currentSession() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		r.session = &Session{ID: uuid.NewString()}
		r.logger.Info("Created shell session.", "sessionID", r.session.ID)
	}
	return r.session
}

// effectiveCommand prefixes a directory change when cwd differs from the
// session's current directory.
func effectiveCommand(command, cwd, sessionDir string) string {
	if cwd == "" || cwd == sessionDir {
		return command
	}
	return fmt.Sprintf("cd %q && %s", cwd, command)
}

// Execute runs command in the persistent session, racing completion against
// timeout. With output capture available, streamed stdout and stderr are
// accumulated into the result. A timeout kills the command and yields a
// timeout failure rather than partial output. Without capture, the command is
// dispatched and the call returns immediately with an uncaptured result.
func (r *Runner) Execute(ctx context.Context, command, cwd string, timeout time.Duration) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, mcperrors.NewValidationError("command must not be empty", nil, nil)
	}
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	session := r.currentSession()
	effective := effectiveCommand(command, cwd, session.Dir)
	if cwd != "" {
		r.mu.Lock()
		session.Dir = cwd
		r.mu.Unlock()
	}

	if !r.captureOutput {
		cmd := exec.Command("sh", "-c", effective)
		if err := cmd.Start(); err != nil {
			return nil, mcperrors.NewNotFoundError("failed to start command", err,
				map[string]any{"command": command})
		}
		go func() { _ = cmd.Wait() }()
		r.logger.Info("Dispatched command without capture.", "sessionID", session.ID, "command", command)
		return &Result{
			SessionID: session.ID,
			Command:   command,
			Output:    "Command sent to the session. Output was not captured.",
			Captured:  false,
		}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var buf bytes.Buffer
	cmd := exec.CommandContext(runCtx, "sh", "-c", effective)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	// Background children inherit the output pipe and would keep Run blocked
	// past the deadline after the shell itself is killed. WaitDelay forces the
	// pipe closed shortly after cancellation so the timeout wins.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		r.logger.Warn("Command timed out.", "sessionID", session.ID, "command", command, "timeout", timeout)
		return nil, mcperrors.NewTimeoutError("command timed out", runCtx.Err(),
			map[string]any{"command": command, "timeout": timeout.String()})
	}

	result := &Result{
		SessionID: session.ID,
		Command:   command,
		Output:    buf.String(),
		Captured:  true,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, errors.Wrapf(err, "failed to run command: %s", command)
		}
	}

	r.logger.Info("Command completed.",
		"sessionID", session.ID, "command", command,
		"exitCode", result.ExitCode, "elapsed", elapsed.String())
	return result, nil
}

// ListDir lists the entries of dir, defaulting to the process working
// directory. Directory names carry a trailing separator so callers can tell
// them apart from files; entries are sorted with directories first.
func (r *Runner) ListDir(dir string) ([]string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve working directory")
		}
		dir = cwd
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcperrors.NewNotFoundError("directory not found", err, map[string]any{"dir": dir})
		}
		return nil, errors.Wrapf(err, "failed to list directory: %s", dir)
	}

	var dirs, files []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name()+"/")
		} else {
			files = append(files, e.Name())
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return append(dirs, files...), nil
}
