// Package export writes spectrogram grids to CSV, half-precision binary
// and SQLite.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
)

// Format is an output encoding
type Format int

const (
	FormatCSV Format = iota
	FormatFloat16
	FormatSQLite
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatFloat16:
		return "f16"
	case FormatSQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension returns the conventional file extension, dot included
func (f Format) Extension() string {
	switch f {
	case FormatFloat16:
		return ".f16"
	case FormatSQLite:
		return ".db"
	default:
		return ".csv"
	}
}

// ParseFormat converts "csv", "f16" or "sqlite" to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "csv":
		return FormatCSV, nil
	case "f16", "float16", "half":
		return FormatFloat16, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return 0, fmt.Errorf("unknown export format %q", name)
	}
}

// WriteFile writes grid to path as CSV or half-precision binary, in the
// requested orientation. SQLite output goes through Sink instead.
func WriteFile(path string, format Format, grid *spectral.Grid, orientation spectral.Orientation) error {
	if format == FormatSQLite {
		return fmt.Errorf("sqlite output needs a Sink, not a file writer")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	switch format {
	case FormatFloat16:
		err = WriteFloat16(f, grid.Oriented(orientation))
	default:
		err = WriteCSV(f, grid, orientation)
	}
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// ReplaceExtension swaps the extension of path for ext
func ReplaceExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
