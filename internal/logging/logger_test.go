package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DEBUG,
		" INFO ":  INFO,
		"warning": WARN,
		"error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	l, err := NewLogger(Config{Level: DEBUG, OutputFile: path, JSONFormat: true})
	require.NoError(t, err)

	l.Slog().Info("branch analyzed", "branch", 3)
	lr := l.Logrus()
	assert.Equal(t, logrus.DebugLevel, lr.GetLevel())
	lr.WithField("project", "demo").Info("project done")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"branch":3`)
	assert.Contains(t, string(data), `"project":"demo"`)
}

func TestRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))

	require.NoError(t, rotate(path, 32, 3))
	_, err := os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
