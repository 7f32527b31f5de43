package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Orientation says which axis a Grid's rows run along
type Orientation int

const (
	// TimeMajor grids have one row per frame (the engine's native layout)
	TimeMajor Orientation = iota
	// FrequencyMajor grids have one row per frequency bin (scipy's Zxx layout)
	FrequencyMajor
)

func (o Orientation) String() string {
	switch o {
	case TimeMajor:
		return "time"
	case FrequencyMajor:
		return "frequency"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation converts "time" or "frequency" to an Orientation
func ParseOrientation(name string) (Orientation, error) {
	switch name {
	case "", "time", "frames", "time-major":
		return TimeMajor, nil
	case "frequency", "freq", "bins", "frequency-major":
		return FrequencyMajor, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q", name)
	}
}

// Spectrogram is the complex STFT, stored contiguously frame by frame
type Spectrogram struct {
	frames int
	bins   int
	data   []complex128
}

// NewSpectrogram allocates a zeroed frames x bins spectrogram
func NewSpectrogram(frames, bins int) *Spectrogram {
	return &Spectrogram{
		frames: frames,
		bins:   bins,
		data:   make([]complex128, frames*bins),
	}
}

// Assemble copies per-frame spectra, in frame order, into one spectrogram.
// Every spectrum must have the same length.
func Assemble(spectra [][]complex128) (*Spectrogram, error) {
	if len(spectra) == 0 {
		return NewSpectrogram(0, 0), nil
	}

	bins := len(spectra[0])
	s := NewSpectrogram(len(spectra), bins)
	for f, spectrum := range spectra {
		if len(spectrum) != bins {
			return nil, fmt.Errorf("frame %d has %d bins, expected %d", f, len(spectrum), bins)
		}
		copy(s.Row(f), spectrum)
	}

	return s, nil
}

// Frames returns the number of frames (rows)
func (s *Spectrogram) Frames() int {
	return s.frames
}

// Bins returns the number of frequency bins per frame
func (s *Spectrogram) Bins() int {
	return s.bins
}

// At returns the coefficient of (frame, bin)
func (s *Spectrogram) At(frame, bin int) complex128 {
	return s.data[frame*s.bins+bin]
}

// Row returns the spectrum of one frame. The slice aliases the spectrogram.
func (s *Spectrogram) Row(frame int) []complex128 {
	start := frame * s.bins
	end := start + s.bins
	return s.data[start:end:end]
}

// Complex returns a [frame][bin] copy of the coefficients
func (s *Spectrogram) Complex() [][]complex128 {
	out := make([][]complex128, s.frames)
	for f := range s.frames {
		out[f] = make([]complex128, s.bins)
		copy(out[f], s.Row(f))
	}
	return out
}

// mapCells builds a time-major grid by applying fn to every coefficient
func (s *Spectrogram) mapCells(fn func(complex128) float64) *Grid {
	g := NewGrid(s.frames, s.bins, TimeMajor)
	for i, c := range s.data {
		g.data[i] = fn(c)
	}
	return g
}

// Grid is a dense real-valued matrix with an explicit orientation
type Grid struct {
	rows        int
	cols        int
	orientation Orientation
	data        []float64
}

// NewGrid allocates a zeroed rows x cols grid
func NewGrid(rows, cols int, orientation Orientation) *Grid {
	return &Grid{
		rows:        rows,
		cols:        cols,
		orientation: orientation,
		data:        make([]float64, rows*cols),
	}
}

// GridFromRows copies a rectangular [][]float64 into a grid
func GridFromRows(values [][]float64, orientation Orientation) (*Grid, error) {
	if len(values) == 0 {
		return NewGrid(0, 0, orientation), nil
	}
	g := NewGrid(len(values), len(values[0]), orientation)
	for r, row := range values {
		if len(row) != g.cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", r, len(row), g.cols)
		}
		copy(g.Row(r), row)
	}
	return g, nil
}

func (g *Grid) Rows() int                { return g.rows }
func (g *Grid) Cols() int                { return g.cols }
func (g *Grid) Orientation() Orientation { return g.orientation }

// At returns the cell at (row, col)
func (g *Grid) At(row, col int) float64 {
	return g.data[row*g.cols+col]
}

// Set assigns the cell at (row, col)
func (g *Grid) Set(row, col int, v float64) {
	g.data[row*g.cols+col] = v
}

// Row returns one row. The slice aliases the grid.
func (g *Grid) Row(row int) []float64 {
	start := row * g.cols
	end := start + g.cols
	return g.data[start:end:end]
}

// Frames returns the number of time frames regardless of orientation
func (g *Grid) Frames() int {
	if g.orientation == FrequencyMajor {
		return g.cols
	}
	return g.rows
}

// Bins returns the number of frequency bins regardless of orientation
func (g *Grid) Bins() int {
	if g.orientation == FrequencyMajor {
		return g.rows
	}
	return g.cols
}

// Value returns the cell for (frame, bin) regardless of orientation
func (g *Grid) Value(frame, bin int) float64 {
	if g.orientation == FrequencyMajor {
		return g.At(bin, frame)
	}
	return g.At(frame, bin)
}

// Transpose returns a copy with rows and columns swapped and the
// orientation flipped
func (g *Grid) Transpose() *Grid {
	flipped := TimeMajor
	if g.orientation == TimeMajor {
		flipped = FrequencyMajor
	}

	t := NewGrid(g.cols, g.rows, flipped)
	for r := range g.rows {
		for c := range g.cols {
			t.data[c*g.rows+r] = g.data[r*g.cols+c]
		}
	}
	return t
}

// Oriented returns g itself when it already has orientation o, otherwise
// its transpose
func (g *Grid) Oriented(o Orientation) *Grid {
	if g.orientation == o {
		return g
	}
	return g.Transpose()
}

// Values returns a [row][col] copy
func (g *Grid) Values() [][]float64 {
	out := make([][]float64, g.rows)
	for r := range g.rows {
		out[r] = make([]float64, g.cols)
		copy(out[r], g.Row(r))
	}
	return out
}

// Float32 returns the cells, row after row, narrowed to float32
func (g *Grid) Float32() []float32 {
	out := make([]float32, len(g.data))
	for i, v := range g.data {
		out[i] = float32(v)
	}
	return out
}

// PeakBin returns the bin with the largest value in one frame
func (g *Grid) PeakBin(frame int) int {
	if g.orientation == TimeMajor {
		return floats.MaxIdx(g.Row(frame))
	}
	column := make([]float64, g.rows)
	for b := range g.rows {
		column[b] = g.At(b, frame)
	}
	return floats.MaxIdx(column)
}

// AllFinite reports whether no cell is NaN or infinite
func (g *Grid) AllFinite() bool {
	if floats.HasNaN(g.data) {
		return false
	}
	for _, v := range g.data {
		if math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest absolute cell difference between two
// grids of identical shape and orientation
func (g *Grid) MaxAbsDiff(other *Grid) (float64, error) {
	if g.rows != other.rows || g.cols != other.cols || g.orientation != other.orientation {
		return 0, fmt.Errorf("grid shapes differ: %dx%d %s vs %dx%d %s",
			g.rows, g.cols, g.orientation, other.rows, other.cols, other.orientation)
	}
	if len(g.data) == 0 {
		return 0, nil
	}
	return floats.Distance(g.data, other.data, math.Inf(1)), nil
}
