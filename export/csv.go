package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
)

// CSVPrecision is the number of mantissa digits written per cell, matching
// numpy's savetxt(fmt='%.18e')
const CSVPrecision = 18

// WriteCSV writes grid as comma separated rows without a header, one grid
// row per line, transposing first when orientation differs from the grid's
func WriteCSV(w io.Writer, grid *spectral.Grid, orientation spectral.Orientation) error {
	g := grid.Oriented(orientation)

	cw := csv.NewWriter(w)
	record := make([]string, g.Cols())
	for r := range g.Rows() {
		for c, v := range g.Row(r) {
			record[c] = strconv.FormatFloat(v, 'e', CSVPrecision, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", r, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ReadCSV parses a headerless numeric CSV into a grid. The orientation is
// not stored in the file, so the caller states it.
func ReadCSV(r io.Reader, orientation spectral.Orientation) (*spectral.Grid, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	var rows [][]float64
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", len(rows), i, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return spectral.GridFromRows(rows, orientation)
}
