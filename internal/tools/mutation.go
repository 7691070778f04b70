// file: internal/tools/mutation.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

func registerCreateFile(reg *mcp.Registry, deps Deps) error {
	type createArgs struct {
		Path           string `json:"path"`
		Content        string `json:"content"`
		Overwrite      bool   `json:"overwrite"`
		IgnoreIfExists bool   `json:"ignoreIfExists"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "create_file_code",
			Title:       "Create File",
			Description: "Creates a file in the workspace. An existing file is an error unless overwrite replaces it or ignoreIfExists keeps it.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"content": {"type": "string"},
					"overwrite": {"type": "boolean", "default": false},
					"ignoreIfExists": {"type": "boolean", "default": false}
				},
				"required": ["path", "content"]
			}`),
		},
		Handler: func(_ context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args createArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if err := deps.Workspace.CreateFile(args.Path, args.Content, args.Overwrite, args.IgnoreIfExists); err != nil {
				return nil, err
			}
			if abs, err := deps.Workspace.Resolve(args.Path); err == nil {
				if err := deps.Editor.OpenFile(abs); err != nil {
					deps.Logger.Warn("Failed to open created file.", "path", args.Path, "error", err)
				}
			}
			return protocol.TextResult(fmt.Sprintf("Created %s.", args.Path)), nil
		},
	})
}

func registerReplaceLines(reg *mcp.Registry, deps Deps) error {
	type replaceArgs struct {
		Path         string `json:"path"`
		StartLine    int    `json:"startLine"`
		EndLine      int    `json:"endLine"`
		Content      string `json:"content"`
		OriginalCode string `json:"originalCode"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "replace_lines_code",
			Title:       "Replace Lines",
			Description: "Replaces an inclusive 1-based line range. originalCode must match the current text of that range exactly; on mismatch nothing is written and the response carries the actual text.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"startLine": {"type": "integer", "minimum": 1},
					"endLine": {"type": "integer", "minimum": 1},
					"content": {"type": "string"},
					"originalCode": {"type": "string"}
				},
				"required": ["path", "startLine", "endLine", "content", "originalCode"]
			}`),
		},
		Handler: func(_ context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args replaceArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.StartLine < 1 || args.EndLine < 1 {
				return nil, mcperrors.NewValidationError("line numbers are 1-based", nil,
					map[string]any{"startLine": args.StartLine, "endLine": args.EndLine})
			}
			err := deps.Workspace.ReplaceLines(args.Path, args.StartLine-1, args.EndLine-1, args.Content, args.OriginalCode)
			if err != nil {
				return nil, err
			}
			return protocol.TextResult(fmt.Sprintf("Replaced lines %d-%d in %s.", args.StartLine, args.EndLine, args.Path)), nil
		},
	})
}

func registerTypeIntoFile(reg *mcp.Registry, deps Deps) error {
	type typeArgs struct {
		Path           string `json:"path"`
		Content        string `json:"content"`
		SpeedMsPerChar *int   `json:"speedMsPerChar"`
		InsertAtLine   *int   `json:"insertAtLine"`
		InsertAtColumn *int   `json:"insertAtColumn"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "type_into_file_code",
			Title:       "Type Into File",
			Description: "Inserts content character by character with a fixed delay, so the edit is observable as it happens. insertAtLine is 1-based; without a position the content is appended at end of file.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"content": {"type": "string"},
					"speedMsPerChar": {"type": "integer", "minimum": 0},
					"insertAtLine": {"type": "integer", "minimum": 1},
					"insertAtColumn": {"type": "integer", "minimum": 0}
				},
				"required": ["path", "content"]
			}`),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args typeArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			delay := deps.TypingDelay
			if args.SpeedMsPerChar != nil {
				delay = time.Duration(*args.SpeedMsPerChar) * time.Millisecond
			}
			line, column := -1, -1
			if args.InsertAtLine != nil {
				line = *args.InsertAtLine - 1
			}
			if args.InsertAtColumn != nil {
				column = *args.InsertAtColumn
			}
			if err := deps.Workspace.TypeInto(ctx, args.Path, args.Content, delay, line, column); err != nil {
				return nil, err
			}
			return protocol.TextResult(fmt.Sprintf("Typed %d characters into %s.", len(args.Content), args.Path)), nil
		},
	})
}
