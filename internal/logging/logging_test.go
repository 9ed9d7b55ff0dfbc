package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/logging"
	"github.com/nhle/taskboard/internal/model"
)

func TestLogToBuffer(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	l, err := logging.New(model.LogConfig{Level: "debug"}, buff)
	require.NoError(t, err)
	require.Equal(t, 0, buff.Len())

	l.Debug().Msg("Test")
	require.Contains(t, buff.String(), "Test")
	require.Contains(t, buff.String(), `"time"`)
	require.NoError(t, l.Close())
}

func TestLogLevelFilters(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	l, err := logging.New(model.LogConfig{Level: "warn"}, buff)
	require.NoError(t, err)

	l.Info().Msg("hidden")
	require.Equal(t, 0, buff.Len())
	l.Warn().Msg("shown")
	require.Contains(t, buff.String(), "shown")
}

func TestLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "board.log")
	l, err := logging.New(model.LogConfig{File: path}, nil)
	require.NoError(t, err)

	l.Info().Str("key", "value").Msg("written")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "written")
	require.Contains(t, string(data), `"key":"value"`)
}
