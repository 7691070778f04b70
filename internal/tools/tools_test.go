// file: internal/tools/tools_test.go
package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcp"
	"github.com/hostbridge/hostbridge/internal/protocol"
	"github.com/hostbridge/hostbridge/internal/shell"
	"github.com/hostbridge/hostbridge/internal/workspace"
)

// recordingOpener captures editor open requests.
type recordingOpener struct {
	files      []string
	workspaces []string
}

func (o *recordingOpener) OpenFile(path string) error {
	o.files = append(o.files, path)
	return nil
}

func (o *recordingOpener) OpenWorkspace(path string) error {
	o.workspaces = append(o.workspaces, path)
	return nil
}

type fixture struct {
	registry   *mcp.Registry
	dispatcher *mcp.Dispatcher
	workspace  *workspace.Workspace
	opener     *recordingOpener
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755), "Test setup should create directories.")
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644), "Test setup should write files.")
	}

	ws := workspace.New(root, logging.GetNoopLogger())
	opener := &recordingOpener{}
	reg := mcp.NewRegistry()
	require.NoError(t, Register(reg, Deps{
		Workspace:   ws,
		Shell:       shell.NewRunner(logging.GetNoopLogger()),
		Editor:      opener,
		TypingDelay: time.Millisecond,
		Logger:      logging.GetNoopLogger(),
	}), "Registration should succeed.")

	return &fixture{
		registry:   reg,
		dispatcher: mcp.NewDispatcher(reg, logging.GetNoopLogger()),
		workspace:  ws,
		opener:     opener,
	}
}

// call invokes a tool through the dispatcher and returns the decoded result.
func (f *fixture) call(t *testing.T, tool string, args any) *protocol.CallToolResult {
	t.Helper()
	encoded, err := json.Marshal(args)
	require.NoError(t, err, "Encoding the arguments should succeed.")
	msg, err := protocol.NewRequest(json.RawMessage(`1`), "tools/call", protocol.CallToolParams{
		Name:      tool,
		Arguments: encoded,
	})
	require.NoError(t, err, "Building the request should succeed.")

	response := f.dispatcher.CallTool(context.Background(), msg)
	require.Nil(t, response.Error, "Tool calls should produce normal responses.")

	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(response.Result, &result), "The result should decode.")
	return &result
}

func TestRegister_ExposesFullSurface(t *testing.T) {
	f := newFixture(t, nil)

	var names []string
	for _, tool := range f.registry.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"list_files_code",
		"read_file_code",
		"find_file_code",
		"open_workspace_for_file",
		"create_file_code",
		"replace_lines_code",
		"type_into_file_code",
		"execute_shell_command_code",
		"shell_list_dir_code",
	}, names, "All tools should be registered in a stable order.")
	assert.Len(t, f.registry.Resources(), 2, "Both resources should be registered.")

	require.NoError(t, Register(f.registry, Deps{
		Workspace: f.workspace,
		Shell:     shell.NewRunner(logging.GetNoopLogger()),
	}), "A second registration pass should be an idempotent no-op.")
	assert.Len(t, f.registry.Tools(), 9, "The second pass must not duplicate tools.")
}

func TestListFilesTool_ReturnsEntries(t *testing.T) {
	f := newFixture(t, map[string]string{"src/app.go": "package src", "readme.md": ""})

	result := f.call(t, "list_files_code", map[string]any{"path": ".", "recursive": true})
	require.False(t, result.IsError, "Listing should succeed.")

	var entries []workspace.Entry
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &entries), "The payload should decode.")
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"src", "src/app.go", "readme.md"}, paths,
		"The listing should cover the workspace.")
}

func TestReadFileTool_ConvertsOneBasedLines(t *testing.T) {
	f := newFixture(t, map[string]string{"poem.txt": "first\nsecond\nthird"})

	result := f.call(t, "read_file_code", map[string]any{
		"path": "poem.txt", "startLine": 2, "endLine": 2,
	})
	require.False(t, result.IsError, "Reading should succeed.")
	assert.Equal(t, "second", result.Content[0].Text,
		"The 1-based external range should address the right lines.")
}

func TestReplaceLinesTool_MismatchIsAnErrorResult(t *testing.T) {
	f := newFixture(t, map[string]string{"code.go": "alpha\nbeta"})

	result := f.call(t, "replace_lines_code", map[string]any{
		"path": "code.go", "startLine": 2, "endLine": 2,
		"content": "BETA", "originalCode": "stale",
	})
	assert.True(t, result.IsError, "A mismatch should surface as an isError result.")
	assert.Contains(t, result.Content[0].Text, "does not match",
		"The result should describe the mismatch.")

	raw, err := os.ReadFile(filepath.Join(f.workspace.Root(), "code.go"))
	require.NoError(t, err, "Reading the file back should succeed.")
	assert.Equal(t, "alpha\nbeta", string(raw), "The mismatch must not modify the file.")
}

func TestReplaceLinesTool_ConvertsOneBasedLines(t *testing.T) {
	f := newFixture(t, map[string]string{"code.go": "alpha\nbeta"})

	result := f.call(t, "replace_lines_code", map[string]any{
		"path": "code.go", "startLine": 1, "endLine": 1,
		"content": "ALPHA", "originalCode": "alpha",
	})
	require.False(t, result.IsError, "A matching replace should succeed.")

	raw, err := os.ReadFile(filepath.Join(f.workspace.Root(), "code.go"))
	require.NoError(t, err, "Reading the file back should succeed.")
	assert.Equal(t, "ALPHA\nbeta", string(raw), "Line 1 externally should be line 0 internally.")
}

func TestCreateFileTool_OpensTheCreatedFile(t *testing.T) {
	f := newFixture(t, nil)

	result := f.call(t, "create_file_code", map[string]any{"path": "fresh.txt", "content": "x"})
	require.False(t, result.IsError, "Creation should succeed.")
	require.Len(t, f.opener.files, 1, "The created file should be opened in the editing surface.")
	assert.Equal(t, filepath.Join(f.workspace.Root(), "fresh.txt"), f.opener.files[0],
		"The opener should receive the absolute path.")
}

func TestTypeIntoFileTool_InsertsContent(t *testing.T) {
	f := newFixture(t, map[string]string{"doc.txt": "ab"})

	result := f.call(t, "type_into_file_code", map[string]any{
		"path": "doc.txt", "content": "XY", "speedMsPerChar": 0, "insertAtLine": 1, "insertAtColumn": 1,
	})
	require.False(t, result.IsError, "Typing should succeed.")

	raw, err := os.ReadFile(filepath.Join(f.workspace.Root(), "doc.txt"))
	require.NoError(t, err, "Reading the file back should succeed.")
	assert.Equal(t, "aXYb", string(raw), "The content should land at the 1-based line position.")
}

func TestFindFileTool_SingleMatchOpensWorkspace(t *testing.T) {
	f := newFixture(t, map[string]string{"go.mod": "module x", "pkg/target.go": "package pkg"})

	result := f.call(t, "find_file_code", map[string]any{"targetName": "target.go"})
	require.False(t, result.IsError, "The search should succeed.")
	require.NotEmpty(t, f.opener.workspaces, "A single match should open its workspace.")
	assert.Equal(t, f.workspace.Root(), f.opener.workspaces[0],
		"The project root containing the marker file should be opened.")
	require.NotEmpty(t, f.opener.files, "The match itself should be revealed.")
}

func TestFindFileTool_MultipleMatchesDeferToCaller(t *testing.T) {
	f := newFixture(t, map[string]string{"a/dup.txt": "", "b/dup.txt": ""})

	result := f.call(t, "find_file_code", map[string]any{"targetName": "dup.txt", "openWorkspace": false})
	require.False(t, result.IsError, "The search should succeed.")
	assert.Empty(t, f.opener.workspaces, "Multiple matches must not auto-open anything.")

	var payload struct {
		Matches []string `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload), "The payload should decode.")
	assert.Len(t, payload.Matches, 2, "All candidates should be returned.")
}

func TestExecuteShellCommandTool_CapturesOutput(t *testing.T) {
	f := newFixture(t, nil)

	result := f.call(t, "execute_shell_command_code", map[string]any{"command": "echo bridged"})
	require.False(t, result.IsError, "Execution should succeed.")
	assert.Contains(t, result.Content[0].Text, "bridged", "The payload should carry the output.")
}

func TestExecuteShellCommandTool_TimeoutIsAnErrorResult(t *testing.T) {
	f := newFixture(t, nil)

	result := f.call(t, "execute_shell_command_code", map[string]any{"command": "sleep 5", "timeout": 1})
	assert.True(t, result.IsError, "A timed-out command should surface as an isError result.")
	assert.Contains(t, result.Content[0].Text, "timed out", "The result should describe the timeout.")
}

func TestFileResource_ServesContent(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.md": "# notes"})

	msg, err := protocol.NewRequest(json.RawMessage(`1`), "resources/read",
		protocol.ReadResourceParams{URI: "file://notes.md"})
	require.NoError(t, err, "Building the request should succeed.")

	response := f.dispatcher.ReadResource(context.Background(), msg)
	require.Nil(t, response.Error, "Reading the file resource should succeed.")

	var result protocol.ReadResourceResult
	require.NoError(t, json.Unmarshal(response.Result, &result), "The result should decode.")
	require.Len(t, result.Contents, 1, "One content blob should be returned.")
	assert.Equal(t, "# notes", result.Contents[0].Text, "The blob should carry the file text.")
}

func TestStructureResource_ServesTree(t *testing.T) {
	f := newFixture(t, map[string]string{"src/main.go": "package main"})

	msg, err := protocol.NewRequest(json.RawMessage(`1`), "resources/read",
		protocol.ReadResourceParams{URI: "workspace://structure"})
	require.NoError(t, err, "Building the request should succeed.")

	response := f.dispatcher.ReadResource(context.Background(), msg)
	require.Nil(t, response.Error, "Reading the structure resource should succeed.")

	var result protocol.ReadResourceResult
	require.NoError(t, json.Unmarshal(response.Result, &result), "The result should decode.")
	require.Len(t, result.Contents, 1, "One content blob should be returned.")

	var node workspace.Node
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &node), "The tree should decode.")
	require.Len(t, node.Children, 1, "The tree should contain the src directory.")
	assert.Equal(t, "src", node.Children[0].Name, "The child should be the src directory.")
}

func TestShellListDirTool_ListsEntries(t *testing.T) {
	f := newFixture(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen.txt"), nil, 0o644),
		"Test setup should write a file.")

	result := f.call(t, "shell_list_dir_code", map[string]any{"dir": dir})
	require.False(t, result.IsError, "Listing should succeed.")
	assert.Contains(t, result.Content[0].Text, "seen.txt", "The listing should name the file.")
}
