// Package editor launches the host editing surface. The rest of the system
// talks to it only through the Opener interface; the concrete launcher spawns
// a detached editor process and never waits on it.
package editor

// file: internal/editor/editor.go

import (
	"os/exec"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
)

// Opener opens files and workspaces in an editing surface.
type Opener interface {
	// OpenFile reveals the file at the given absolute path.
	OpenFile(path string) error
	// OpenWorkspace opens the directory at the given absolute path as a
	// workspace or project.
	OpenWorkspace(path string) error
}

// commands maps an editor name to its launcher binary.
var commands = map[string]string{
	"vscode":  "code",
	"sublime": "subl",
	"atom":    "atom",
	"vim":     "vim",
	"pycharm": "pycharm",
}

// DefaultEditor is used when no editor is configured.
const DefaultEditor = "vscode"

// Launcher opens paths by spawning an editor binary.
type Launcher struct {
	command string
	logger  logging.Logger
}

// NewLauncher creates a Launcher for the named editor. Unknown names fail so
// a configuration typo surfaces at startup rather than on first use.
func NewLauncher(name string, logger logging.Logger) (*Launcher, error) {
	if name == "" {
		name = DefaultEditor
	}
	command, ok := commands[name]
	if !ok {
		return nil, mcperrors.NewValidationError("unknown editor", nil, map[string]any{"editor": name})
	}
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Launcher{
		command: command,
		logger:  logger.WithField("component", "editor"),
	}, nil
}

func (l *Launcher) launch(path string) error {
	cmd := exec.Command(l.command, path)
	if err := cmd.Start(); err != nil {
		return mcperrors.NewNotFoundError("failed to launch editor", err,
			map[string]any{"command": l.command, "path": path})
	}
	// The editor outlives this call; reap it in the background.
	go func() { _ = cmd.Wait() }()
	l.logger.Info("Launched editor.", "command", l.command, "path", path)
	return nil
}

// OpenFile implements Opener.
func (l *Launcher) OpenFile(path string) error { return l.launch(path) }

// OpenWorkspace implements Opener.
func (l *Launcher) OpenWorkspace(path string) error { return l.launch(path) }

// NoopOpener ignores every open request. It stands in when no editing surface
// is available, keeping tool semantics intact without the side effect.
type NoopOpener struct{}

// OpenFile implements Opener.
func (NoopOpener) OpenFile(string) error { return nil }

// OpenWorkspace implements Opener.
func (NoopOpener) OpenWorkspace(string) error { return nil }
