package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"PostLane/internal/conf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var utcStamp = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}Z\]$`)

// fileLogger builds a logger that also writes to a temp file and returns the file path.
func fileLogger(t *testing.T, cfg *conf.Log) (*zap.Logger, string) {
	t.Helper()
	cfg.OutputFile = filepath.Join(t.TempDir(), "postlane.log")
	logger, err := NewZapLogger(cfg)
	require.NoError(t, err)
	return logger, cfg.OutputFile
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestNewZapLogger_RejectsBadConfig(t *testing.T) {
	_, err := NewZapLogger(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log config is nil")

	_, err = NewZapLogger(&conf.Log{Level: "verbose", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "verbose"`)
}

func TestCustomTimeEncoder_UTC(t *testing.T) {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:    "timestamp",
		MessageKey: "msg",
		EncodeTime: customTimeEncoder,
	})
	shanghai := time.FixedZone("UTC+8", 8*3600)
	entry := zapcore.Entry{Time: time.Date(2025, 1, 7, 14, 5, 9, 0, shanghai), Message: "tick"}

	buf, err := enc.EncodeEntry(entry, nil)
	require.NoError(t, err)
	defer buf.Free()

	assert.Contains(t, buf.String(), `"timestamp":"[2025-01-07 06:05:09Z]"`)
}

func TestNewZapLogger_JSONLine(t *testing.T) {
	logger, path := fileLogger(t, &conf.Log{Level: "info", Format: "json", Env: "production"})

	logger.Info("publish run finished", zap.String("job", "publish-content"), zap.Int("published", 3))
	_ = logger.Sync()

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))

	assert.Equal(t, ServiceName, line["service"])
	assert.Equal(t, "PostLane", line["service"])
	assert.Equal(t, "publish run finished", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "publish-content", line["job"])
	assert.EqualValues(t, 3, line["published"])
	assert.Contains(t, line["caller"], "zap_test.go")
	assert.Regexp(t, utcStamp, line["timestamp"])
}

func TestNewZapLogger_EnvResolution(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		cfgEnv   string
		wantJSON bool
	}{
		{name: "POSTLANE_ENV development switches to console", envVar: "development", wantJSON: false},
		{name: "unset defaults to production", envVar: "", wantJSON: true},
		{name: "config env wins over POSTLANE_ENV", envVar: "development", cfgEnv: "production", wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POSTLANE_ENV", tt.envVar)
			logger, path := fileLogger(t, &conf.Log{Level: "info", Format: "json", Env: tt.cfgEnv})

			logger.Info("env check")
			_ = logger.Sync()

			lines := readLines(t, path)
			require.Len(t, lines, 1)
			if tt.wantJSON {
				assert.True(t, json.Valid([]byte(lines[0])), lines[0])
				return
			}
			assert.False(t, strings.HasPrefix(lines[0], "{"), lines[0])
			assert.Contains(t, lines[0], "ℹ️ env check")
			assert.Regexp(t, utcStamp, strings.SplitN(lines[0], "\t", 2)[0])
		})
	}
}

func TestNewZapLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"debug", "info", "warn", "error"}},
		{level: "info", want: []string{"info", "warn", "error"}},
		{level: "warn", want: []string{"warn", "error"}},
		{level: "error", want: []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, path := fileLogger(t, &conf.Log{Level: tt.level, Format: "json", Env: "production"})

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")
			_ = logger.Sync()

			var got []string
			for _, raw := range readLines(t, path) {
				var line map[string]any
				require.NoError(t, json.Unmarshal([]byte(raw), &line))
				got = append(got, line["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
