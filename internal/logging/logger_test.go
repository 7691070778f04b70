// file: internal/logging/logger_test.go
package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_ReturnsLogger_WhenCalled(t *testing.T) {
	logger := GetLogger("test")
	require.NotNil(t, logger, "GetLogger should never return nil.")
}

func TestNoopLogger_DoesNothing_WhenLogging(t *testing.T) {
	logger := GetNoopLogger()
	// Must not panic and must keep returning a usable logger.
	logger.Debug("msg", "k", "v")
	logger.Error("msg")
	assert.Equal(t, logger, logger.WithField("k", "v"), "NoopLogger.WithField should return itself.")
}

func TestLogrusLogger_EmitsFields_WhenLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger(&buf, "debug")

	logger.WithField("component", "test_component").Info("test message", "key1", "value1", "key2", 123)

	out := buf.String()
	assert.Contains(t, out, "test message", "Log output should contain the message.")
	assert.Contains(t, out, "component=test_component", "Log output should contain the component field.")
	assert.Contains(t, out, "key1=value1", "Log output should contain variadic fields.")
	assert.Contains(t, out, "key2=123", "Log output should contain numeric fields.")
}

func TestLogrusLogger_RespectsLevel_WhenLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger(&buf, "info")

	logger.Debug("should be suppressed")
	logger.Info("should appear")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should be suppressed"), "Debug output should be suppressed at info level.")
	assert.Contains(t, out, "should appear", "Info output should appear at info level.")
}

func TestLogrusLogger_FallsBackToInfo_WhenLevelIsUnknown(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger(&buf, "not-a-level")

	logger.Debug("suppressed")
	logger.Info("visible")

	assert.NotContains(t, buf.String(), "suppressed", "Unknown level should fall back to info.")
	assert.Contains(t, buf.String(), "visible", "Unknown level should fall back to info.")
}
