// file: internal/tools/shell.go
package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

func registerExecuteShellCommand(reg *mcp.Registry, deps Deps) error {
	type execArgs struct {
		Command string `json:"command"`
		Cwd     string `json:"cwd"`
		Timeout *int   `json:"timeout"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "execute_shell_command_code",
			Title:       "Execute Shell Command",
			Description: "Runs a command in the persistent shell session, capturing output. timeout is in seconds; an overrunning command is killed and reported as a timeout, never as partial output.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string"},
					"cwd": {"type": "string", "description": "Working directory for the command."},
					"timeout": {"type": "integer", "minimum": 1, "description": "Seconds before the command is killed."}
				},
				"required": ["command"]
			}`),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args execArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			var timeout time.Duration
			if args.Timeout != nil {
				timeout = time.Duration(*args.Timeout) * time.Second
			}
			result, err := deps.Shell.Execute(ctx, args.Command, args.Cwd, timeout)
			if err != nil {
				return nil, err
			}
			return jsonResult(result)
		},
	})
}

func registerShellListDir(reg *mcp.Registry, deps Deps) error {
	type listArgs struct {
		Dir string `json:"dir"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "shell_list_dir_code",
			Title:       "List Directory",
			Description: "Lists a directory anywhere on the host, directories first. Defaults to the process working directory.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"dir": {"type": "string"}
				}
			}`),
		},
		Handler: func(_ context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args listArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			entries, err := deps.Shell.ListDir(args.Dir)
			if err != nil {
				return nil, err
			}
			return protocol.TextResult(strings.Join(entries, "\n")), nil
		},
	})
}
