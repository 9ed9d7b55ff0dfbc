package board

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// BackupFileName returns the default export file name for the given day.
func BackupFileName(at time.Time) string {
	return "taskboard_backup_" + at.Format(time.DateOnly) + ".json"
}

// Export writes an indented snapshot of every record to w.
func (b *Board) Export(w io.Writer) error {
	snap := b.gw.ExportAll()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	b.log.Info().Str("version", snap.Version).Msg("exported data")
	return nil
}

// ExportFile writes a snapshot to path, replacing any existing file.
func (b *Board) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	if err := b.Export(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing backup file: %w", err)
	}
	return nil
}

// Import validates a snapshot read from r, writes its records and
// reloads the managers. A record that is absent from the snapshot
// keeps its stored value.
func (b *Board) Import(r io.Reader) error {
	var snap store.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decoding backup: %w: %w", model.ErrValidation, err)
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	if !b.gw.ImportAll(snap) {
		return fmt.Errorf("writing backup records: %w", model.ErrStorage)
	}
	b.Reload()
	return nil
}

// ImportFile reads a snapshot from path and imports it.
func (b *Board) ImportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening backup file: %w", err)
	}
	defer f.Close()
	return b.Import(f)
}
