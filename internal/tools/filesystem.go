// file: internal/tools/filesystem.go
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

// defaultMaxCharacters bounds read_file_code output when the caller does not
// supply a limit.
const defaultMaxCharacters = 100000

func registerListFiles(reg *mcp.Registry, deps Deps) error {
	type listArgs struct {
		Path      string `json:"path"`
		Recursive bool   `json:"recursive"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "list_files_code",
			Title:       "List Files",
			Description: "Lists files and directories in the workspace, optionally recursively. Ignored directories (version control, dependencies, build output) are skipped.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Workspace-relative directory to list."},
					"recursive": {"type": "boolean", "default": false}
				},
				"required": ["path"]
			}`),
		},
		Handler: func(_ context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args listArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			entries, err := deps.Workspace.ListFiles(args.Path, args.Recursive)
			if err != nil {
				return nil, err
			}
			return jsonResult(entries)
		},
	})
}

func registerReadFile(reg *mcp.Registry, deps Deps) error {
	type readArgs struct {
		Path          string `json:"path"`
		Encoding      string `json:"encoding"`
		MaxCharacters *int   `json:"maxCharacters"`
		StartLine     *int   `json:"startLine"`
		EndLine       *int   `json:"endLine"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "read_file_code",
			Title:       "Read File",
			Description: "Reads a workspace file as text, or base64 when encoding is \"base64\". Optional 1-based startLine/endLine select an inclusive line range.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"encoding": {"type": "string", "enum": ["utf-8", "base64"], "default": "utf-8"},
					"maxCharacters": {"type": "integer", "minimum": 1, "default": 100000},
					"startLine": {"type": "integer", "minimum": 1},
					"endLine": {"type": "integer", "minimum": 1}
				},
				"required": ["path"]
			}`),
		},
		Handler: func(_ context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args readArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			maxChars := defaultMaxCharacters
			if args.MaxCharacters != nil {
				maxChars = *args.MaxCharacters
			}
			startLine, endLine := -1, -1
			if args.StartLine != nil {
				startLine = *args.StartLine - 1
			}
			if args.EndLine != nil {
				endLine = *args.EndLine - 1
			}
			content, err := deps.Workspace.ReadFile(args.Path, args.Encoding, maxChars, startLine, endLine)
			if err != nil {
				return nil, err
			}
			return protocol.TextResult(content), nil
		},
	})
}

func registerFindFile(reg *mcp.Registry, deps Deps) error {
	type findArgs struct {
		StartPath     string `json:"startPath"`
		TargetName    string `json:"targetName"`
		OpenWorkspace *bool  `json:"openWorkspace"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "find_file_code",
			Title:       "Find File",
			Description: "Searches the workspace for files matching targetName by name or path substring, falling back to a bounded sweep of nearby directories. A single match can be opened directly.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"startPath": {"type": "string", "default": "."},
					"targetName": {"type": "string"},
					"openWorkspace": {"type": "boolean", "default": true}
				},
				"required": ["targetName"]
			}`),
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args findArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.StartPath == "" {
				args.StartPath = "."
			}
			open := true
			if args.OpenWorkspace != nil {
				open = *args.OpenWorkspace
			}

			matches, err := deps.Workspace.FindFiles(ctx, args.StartPath, args.TargetName)
			if err != nil {
				return nil, err
			}

			switch len(matches) {
			case 0:
				if open && deps.Workspace.Root() != "" {
					if err := deps.Editor.OpenWorkspace(deps.Workspace.Root()); err != nil {
						deps.Logger.Warn("Failed to open default workspace.", "error", err)
					}
				}
				return protocol.TextResult(fmt.Sprintf("No files matching %q were found.", args.TargetName)), nil
			case 1:
				if open {
					if err := openWorkspaceForFile(deps, matches[0]); err != nil {
						deps.Logger.Warn("Failed to open matched file.", "path", matches[0], "error", err)
					}
				}
				return jsonResult(map[string]any{"matches": matches, "opened": open})
			default:
				return jsonResult(map[string]any{
					"matches": matches,
					"note":    "Multiple matches found. Choose one and call open_workspace_for_file.",
				})
			}
		},
	})
}

// projectMarkers identify a directory as a project root.
var projectMarkers = []string{".git", "go.mod", "package.json", "pyproject.toml", "Cargo.toml"}

// projectRootFor walks up from the file to the nearest directory holding a
// project marker, defaulting to the file's own directory.
func projectRootFor(path string) string {
	dir := filepath.Dir(path)
	for probe := dir; ; probe = filepath.Dir(probe) {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(probe, marker)); err == nil {
				return probe
			}
		}
		if parent := filepath.Dir(probe); parent == probe {
			return dir
		}
	}
}

func openWorkspaceForFile(deps Deps, path string) error {
	if err := deps.Editor.OpenWorkspace(projectRootFor(path)); err != nil {
		return err
	}
	return deps.Editor.OpenFile(path)
}

func registerOpenWorkspace(reg *mcp.Registry, deps Deps) error {
	type openArgs struct {
		FilePath string `json:"filePath"`
	}
	return reg.RegisterTool(mcp.ToolDefinition{
		Tool: protocol.Tool{
			Name:        "open_workspace_for_file",
			Title:       "Open Workspace For File",
			Description: "Opens the project containing the given file in the editing surface, then reveals the file.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"filePath": {"type": "string", "description": "Absolute path, or workspace-relative when a workspace is open."}
				},
				"required": ["filePath"]
			}`),
		},
		Handler: func(_ context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
			var args openArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			path := args.FilePath
			if !filepath.IsAbs(path) {
				abs, err := deps.Workspace.Resolve(path)
				if err != nil {
					return nil, err
				}
				path = abs
			}
			if _, err := os.Stat(path); err != nil {
				return nil, err
			}
			if err := openWorkspaceForFile(deps, path); err != nil {
				return nil, err
			}
			return protocol.TextResult(fmt.Sprintf("Opened workspace for %s.", args.FilePath)), nil
		},
	})
}
