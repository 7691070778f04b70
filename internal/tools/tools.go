// Package tools registers the hostbridge tool and resource surface: the
// filesystem query tools, the mutation tools, the shell tools, and the file
// and workspace-structure resources. Handlers stay thin; the behavior lives
// in internal/workspace, internal/shell, and internal/editor.
package tools

// file: internal/tools/tools.go

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/hostbridge/hostbridge/internal/editor"
	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
	"github.com/hostbridge/hostbridge/internal/protocol"
	"github.com/hostbridge/hostbridge/internal/shell"
	"github.com/hostbridge/hostbridge/internal/workspace"
)

// Deps carries the collaborators the tool handlers close over.
type Deps struct {
	Workspace *workspace.Workspace
	Shell     *shell.Runner
	Editor    editor.Opener
	// TypingDelay is the per-character delay used by the typing tool when the
	// caller does not supply one.
	TypingDelay time.Duration
	Logger      logging.Logger
}

func (d *Deps) validate() error {
	if d.Workspace == nil {
		return errors.New("tools require a workspace")
	}
	if d.Shell == nil {
		return errors.New("tools require a shell runner")
	}
	if d.Editor == nil {
		d.Editor = editor.NoopOpener{}
	}
	if d.Logger == nil {
		d.Logger = logging.GetNoopLogger()
	}
	if d.TypingDelay <= 0 {
		d.TypingDelay = 20 * time.Millisecond
	}
	return nil
}

// Register seeds reg with the full tool and resource surface. Registration is
// idempotent: a second call from another startup path is a no-op.
func Register(reg *mcp.Registry, deps Deps) error {
	if err := deps.validate(); err != nil {
		return err
	}
	return reg.SeedOnce(func(r *mcp.Registry) error {
		registrations := []func(*mcp.Registry, Deps) error{
			registerListFiles,
			registerReadFile,
			registerFindFile,
			registerOpenWorkspace,
			registerCreateFile,
			registerReplaceLines,
			registerTypeIntoFile,
			registerExecuteShellCommand,
			registerShellListDir,
			registerFileResource,
			registerStructureResource,
		}
		for _, register := range registrations {
			if err := register(r, deps); err != nil {
				return err
			}
		}
		return nil
	})
}

// jsonResult marshals v into a single-block text result.
func jsonResult(v any) (*protocol.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, mcperrors.NewInternalError("failed to encode tool result", err)
	}
	return protocol.TextResult(string(data)), nil
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return errors.Wrap(err, "failed to decode tool arguments")
	}
	return nil
}
