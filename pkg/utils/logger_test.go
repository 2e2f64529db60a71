package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewSugaredLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "production", verbose: false, wantDebug: false},
		{name: "development", verbose: true, wantDebug: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sugar, err := NewSugaredLogger(tt.verbose, "")
			require.NoError(t, err)
			require.NotNil(t, sugar)
			require.Equal(t, tt.wantDebug, sugar.Desugar().Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNewSugaredLogger_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windowctl.log")

	sugar, err := NewSugaredLogger(false, path)
	require.NoError(t, err)
	sugar.Infow("window ready", "capacity", 40)
	_ = sugar.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	require.Equal(t, "window ready", entry["msg"])
	require.InDelta(t, 40, entry["capacity"], 0)
}

func TestNewSugaredLogger_BadLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "windowctl.log")

	_, err := NewSugaredLogger(true, path)
	require.ErrorContains(t, err, "failed to create development logger")
}
