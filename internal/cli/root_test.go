package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "taskboard.db")
	cfg.Log.File = filepath.Join(dir, "taskboard.log")
	cfg.SampleData = false

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, model.SaveConfig(path, cfg))
	return path
}

func run(t *testing.T, config string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", config}, args...))
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestDemoExportImport(t *testing.T) {
	src := writeConfig(t)
	assert.Contains(t, run(t, src, "demo"), "created 4 users and 10 tasks")

	backup := filepath.Join(t.TempDir(), "backup.json")
	assert.Contains(t, run(t, src, "export", backup), "exported to "+backup)

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0"`)

	dst := writeConfig(t)
	assert.Contains(t, run(t, dst, "import", backup), "imported 4 users and 10 tasks")
}

func TestStats(t *testing.T) {
	cfg := writeConfig(t)
	run(t, cfg, "demo")
	out := run(t, cfg, "stats")
	assert.Contains(t, out, "Most productive")
	assert.Contains(t, out, "Storage")
}

func TestImportRejectsGarbage(t *testing.T) {
	cfg := writeConfig(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tasks": "nope"}`), 0o644))

	root := NewRootCommand("test")
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfg, "import", bad})
	assert.Error(t, root.Execute())
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	cfg := writeConfig(t)

	root := NewRootCommand("test")
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfg, "config", "init"})
	assert.Error(t, root.Execute())

	assert.Contains(t, run(t, cfg, "config", "init", "--force"), "wrote")
	assert.Contains(t, run(t, cfg, "config", "show"), "storage.backend:  sqlite")
}
