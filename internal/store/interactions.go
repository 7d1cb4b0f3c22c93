package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// InteractionEntry is one append-only record of a performed interaction.
// Write-once: entries are never mutated or deleted.
type InteractionEntry struct {
	Time    time.Time
	Account string
	Target  string
	Action  string
	Comment string
}

// InteractionLog appends interaction records to a CSV file. Comments go
// through encoding/csv, so embedded quotes and commas are escaped per
// standard CSV doubling.
type InteractionLog struct {
	path string
}

// OpenInteractionLog prepares the log file's directory.
func OpenInteractionLog(path string) (*InteractionLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &InteractionLog{path: path}, nil
}

// Append writes one record.
func (l *InteractionLog) Append(e InteractionEntry) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		e.Time.UTC().Format(time.RFC3339),
		e.Account,
		e.Target,
		e.Action,
		e.Comment,
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
