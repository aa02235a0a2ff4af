package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"procure/internal"
	"procure/internal/config"
)

func NewReader(cfg config.Config) Reader {
	return Reader{Profile: cfg.Columns, DefaultSheet: cfg.DefaultSheet}
}

// ReadFile reads a tracker export from disk without touching storage.
func (r Reader) ReadFile(path, sheet string) (internal.RawTable, []byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.RawTable{}, nil, err
	}
	table, err := r.Read(filepath.Base(path), blob, sheet)
	if err != nil {
		return internal.RawTable{}, nil, err
	}
	return table, blob, nil
}

// LoadFile reads and normalizes a file in one step, for one-shot commands
// that take --input instead of a stored snapshot.
func LoadFile(cfg config.Config, path, sheet string, now time.Time) (internal.Table, error) {
	raw, _, err := NewReader(cfg).ReadFile(path, sheet)
	if err != nil {
		return internal.Table{}, err
	}
	return NormalizeTable(raw, cfg.Columns, now)
}
