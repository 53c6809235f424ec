package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLazyLogger_FollowsDefault(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	var buf bytes.Buffer
	SetOutputWithLevel(&buf, LevelDebug)

	logger := Logger("core/test")
	logger.Debug("测试消息", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "component=core/test")
	assert.Contains(t, out, "key=value")
	assert.True(t, logger.Enabled(LevelDebug))
}

func TestSetup_FileAndFormat(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	path := filepath.Join(t.TempDir(), "node.log")
	require.NoError(t, Setup(Options{Level: "info", Format: FormatJSON, File: path}))

	Logger("core/test").Info("hello")
	Logger("core/test").Debug("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.NotContains(t, string(data), "hidden")

	assert.Error(t, Setup(Options{Format: "xml"}))
	// 恢复 stderr 输出并关闭文件
	require.NoError(t, Setup(Options{}))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", TruncateID("abc", 8))
	assert.Equal(t, "12345678", TruncateID("123456789", 8))
}
