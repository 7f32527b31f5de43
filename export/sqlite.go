package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
	"github.com/RyanBlaney/sonido-stft/logging"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Load for an unknown spectrogram id
var ErrNotFound = errors.New("spectrogram not found")

// Record is the stored metadata of one spectrogram
type Record struct {
	ID                  int64
	Name                string
	View                string
	WindowSize          int
	HopSize             int
	SampleRate          float64
	WindowType          string
	Scaling             string
	Frames              int
	Bins                int
	FrameTimeStep       float64
	FrequencyResolution float64
	CreatedAt           time.Time
}

// Sink stores spectrogram views in a SQLite database
type Sink struct {
	db     *sql.DB
	logger logging.Logger
}

// OpenSQLite opens (or creates) the database at path and ensures the
// schema exists
func OpenSQLite(path string) (*Sink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Sink{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "sqlite_sink",
			"path":      path,
		}),
	}, nil
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func createTables(db *sql.DB) error {
	createSpectrogramsTable := `
    CREATE TABLE IF NOT EXISTS spectrograms (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        view TEXT NOT NULL,
        window_size INTEGER NOT NULL,
        hop_size INTEGER NOT NULL,
        sample_rate REAL NOT NULL,
        window_type TEXT NOT NULL,
        scaling TEXT NOT NULL,
        frames INTEGER NOT NULL,
        bins INTEGER NOT NULL,
        frame_time_step REAL NOT NULL,
        frequency_resolution REAL NOT NULL,
        created_at INTEGER NOT NULL
    );
    `

	createCellsTable := `
    CREATE TABLE IF NOT EXISTS cells (
        spectrogram_id INTEGER NOT NULL,
        frame INTEGER NOT NULL,
        bin INTEGER NOT NULL,
        value REAL NOT NULL,
        PRIMARY KEY (spectrogram_id, frame, bin)
    );
    `

	if _, err := db.Exec(createSpectrogramsTable); err != nil {
		return fmt.Errorf("error creating spectrograms table: %w", err)
	}
	if _, err := db.Exec(createCellsTable); err != nil {
		return fmt.Errorf("error creating cells table: %w", err)
	}
	return nil
}

// Save stores one view of result under name and returns its id. Metadata
// and cells are written in a single transaction.
func (s *Sink) Save(ctx context.Context, name string, result *spectral.Result, view spectral.View) (int64, error) {
	grid, err := result.View(view)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}

	cfg := result.Config
	res, err := tx.ExecContext(ctx, `
		INSERT INTO spectrograms (name, view, window_size, hop_size, sample_rate, window_type, scaling,
		                          frames, bins, frame_time_step, frequency_resolution, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, view.String(), cfg.WindowSize, cfg.HopSize, cfg.SampleRate, cfg.WindowType.String(), cfg.Scaling.String(),
		result.FrameCount, result.FrequencyBinCount, result.FrameTimeStep, result.FrequencyResolution, time.Now().Unix())
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("error adding spectrogram: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("error getting spectrogram ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO cells (spectrogram_id, frame, bin, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for frame := range grid.Rows() {
		for bin, v := range grid.Row(frame) {
			if _, err := stmt.ExecContext(ctx, id, frame, bin, v); err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("error executing statement: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing spectrogram: %w", err)
	}

	s.logger.Debug("Spectrogram stored", logging.Fields{
		"id":     id,
		"name":   name,
		"view":   view.String(),
		"frames": grid.Rows(),
		"bins":   grid.Cols(),
	})

	return id, nil
}

// Load returns the metadata and time-major grid stored under id
func (s *Sink) Load(ctx context.Context, id int64) (*Record, *spectral.Grid, error) {
	rec, err := s.record(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT frame, bin, value FROM cells WHERE spectrogram_id = ? ORDER BY frame, bin", id)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying cells: %w", err)
	}
	defer rows.Close()

	grid := spectral.NewGrid(rec.Frames, rec.Bins, spectral.TimeMajor)
	for rows.Next() {
		var frame, bin int
		var v float64
		if err := rows.Scan(&frame, &bin, &v); err != nil {
			return nil, nil, fmt.Errorf("error scanning cell: %w", err)
		}
		if frame < 0 || frame >= rec.Frames || bin < 0 || bin >= rec.Bins {
			return nil, nil, fmt.Errorf("cell (%d, %d) outside %dx%d grid", frame, bin, rec.Frames, rec.Bins)
		}
		grid.Set(frame, bin, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading cells: %w", err)
	}

	return rec, grid, nil
}

// List returns the metadata of every stored spectrogram, oldest first
func (s *Sink) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM spectrograms ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("error querying spectrograms: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Delete removes a spectrogram and its cells
func (s *Sink) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cells WHERE spectrogram_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("error deleting cells: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM spectrograms WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("error deleting spectrogram: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

const recordColumns = `id, name, view, window_size, hop_size, sample_rate, window_type, scaling,
	frames, bins, frame_time_step, frequency_resolution, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var created int64
	err := row.Scan(&rec.ID, &rec.Name, &rec.View, &rec.WindowSize, &rec.HopSize, &rec.SampleRate,
		&rec.WindowType, &rec.Scaling, &rec.Frames, &rec.Bins, &rec.FrameTimeStep,
		&rec.FrequencyResolution, &created)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(created, 0)
	return &rec, nil
}

func (s *Sink) record(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM spectrograms WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting spectrogram: %w", err)
	}
	return rec, nil
}
