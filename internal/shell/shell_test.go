// file: internal/shell/shell_test.go
package shell

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/mcperrors"
)

func TestRunner_Execute_CapturesOutput(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	result, err := r.Execute(context.Background(), "echo hello", "", 0)
	require.NoError(t, err, "A trivial command should succeed.")
	assert.True(t, result.Captured, "Output should be captured by default.")
	assert.Equal(t, "hello\n", result.Output, "Captured output should include stdout.")
	assert.Equal(t, 0, result.ExitCode, "A successful command should report exit code zero.")
	assert.NotEmpty(t, result.SessionID, "The result should carry the session identifier.")
}

func TestRunner_Execute_ReusesSession(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	first, err := r.Execute(context.Background(), "true", "", 0)
	require.NoError(t, err, "The first command should succeed.")
	second, err := r.Execute(context.Background(), "true", "", 0)
	require.NoError(t, err, "The second command should succeed.")
	assert.Equal(t, first.SessionID, second.SessionID,
		"Consecutive commands should run in the same persistent session.")
}

func TestRunner_Execute_RunsInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("m"), 0o644),
		"Test setup should write the marker file.")
	r := NewRunner(logging.GetNoopLogger())

	result, err := r.Execute(context.Background(), "ls", dir, 0)
	require.NoError(t, err, "Listing the working directory should succeed.")
	assert.Contains(t, result.Output, "marker.txt",
		"The cwd prefix should place the command in the requested directory.")
}

func TestRunner_Execute_TimeoutYieldsNoPartialResult(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	result, err := r.Execute(context.Background(), "echo early; sleep 5", "", 100*time.Millisecond)
	require.Error(t, err, "An overrunning command should fail.")
	assert.Nil(t, result, "A timeout should not yield a partial result.")
	assert.Equal(t, mcperrors.CodeTimeout, mcperrors.CodeOf(err),
		"The failure should be classified as a timeout.")
}

func TestRunner_Execute_TimeoutWinsOverLingeringChildren(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	// The backgrounded sleep inherits the output pipe and outlives the shell.
	start := time.Now()
	result, err := r.Execute(context.Background(), "sleep 5 & sleep 10", "", 500*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err, "An overrunning command should fail.")
	assert.Nil(t, result, "A timeout should not yield a partial result.")
	assert.Equal(t, mcperrors.CodeTimeout, mcperrors.CodeOf(err),
		"The failure should be classified as a timeout.")
	assert.Less(t, elapsed, 2*time.Second,
		"The call should return near the deadline even while a child holds the pipe.")
}

func TestRunner_Execute_NonZeroExitIsAResultNotAnError(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	result, err := r.Execute(context.Background(), "echo oops >&2; exit 3", "", 0)
	require.NoError(t, err, "A failing command should still produce a result.")
	assert.Equal(t, 3, result.ExitCode, "The result should carry the exit code.")
	assert.Contains(t, result.Output, "oops", "Captured output should include stderr.")
}

func TestRunner_Execute_WithoutCaptureReturnsImmediately(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger(), WithoutCapture())

	start := time.Now()
	result, err := r.Execute(context.Background(), "sleep 2", "", 0)
	require.NoError(t, err, "Dispatching without capture should succeed.")
	assert.False(t, result.Captured, "The result should note that output was not captured.")
	assert.Less(t, time.Since(start), time.Second,
		"The call should return without waiting for the command.")
}

func TestRunner_Execute_EmptyCommandFails(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	_, err := r.Execute(context.Background(), "   ", "", 0)
	require.Error(t, err, "A blank command should be rejected.")
	assert.Equal(t, mcperrors.CodeValidation, mcperrors.CodeOf(err),
		"A blank command should be a validation failure.")
}

func TestRunner_ListDir_SortsDirectoriesFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zdir"), 0o755), "Test setup should create a directory.")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "afile"), nil, 0o644), "Test setup should create a file.")
	r := NewRunner(logging.GetNoopLogger())

	entries, err := r.ListDir(dir)
	require.NoError(t, err, "Listing should succeed.")
	assert.Equal(t, []string{"zdir/", "afile"}, entries,
		"Directories should precede files and carry a trailing separator.")
}

func TestRunner_ListDir_MissingDirectoryFails(t *testing.T) {
	r := NewRunner(logging.GetNoopLogger())

	_, err := r.ListDir("/no/such/dir/exists")
	require.Error(t, err, "Listing a missing directory should fail.")
	assert.Equal(t, mcperrors.CodeNotFound, mcperrors.CodeOf(err),
		"The missing directory should be reported as not found.")
}
