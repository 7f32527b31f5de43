package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
	"github.com/x448/float16"
)

// Float16Magic opens every half-precision grid file
const Float16Magic = "SSF16"

// ErrBadMagic is returned when a stream is not a half-precision grid
var ErrBadMagic = errors.New("not a half-precision spectrogram stream")

// float16Header is the fixed little-endian preamble of the binary format
type float16Header struct {
	Magic       [5]byte
	Orientation uint8
	Rows        uint32
	Cols        uint32
}

// WriteFloat16 writes grid as a header followed by rows*cols IEEE-754
// half-precision cells, row after row. Cells beyond +-65504 saturate to
// infinity, so the format suits dB and magnitude views better than power.
func WriteFloat16(w io.Writer, grid *spectral.Grid) error {
	if uint64(grid.Rows()) > math.MaxUint32 || uint64(grid.Cols()) > math.MaxUint32 {
		return fmt.Errorf("grid %dx%d is too large for the half-precision format", grid.Rows(), grid.Cols())
	}

	header := float16Header{
		Orientation: uint8(grid.Orientation()),
		Rows:        uint32(grid.Rows()),
		Cols:        uint32(grid.Cols()),
	}
	copy(header.Magic[:], Float16Magic)

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cells := make([]uint16, grid.Cols())
	for r := range grid.Rows() {
		for c, v := range grid.Row(r) {
			cells[c] = float16.Fromfloat32(float32(v)).Bits()
		}
		if err := binary.Write(w, binary.LittleEndian, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	return nil
}

// ReadFloat16 parses a stream written by WriteFloat16
func ReadFloat16(r io.Reader) (*spectral.Grid, error) {
	var header float16Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != Float16Magic {
		return nil, ErrBadMagic
	}

	orientation := spectral.Orientation(header.Orientation)
	if orientation != spectral.TimeMajor && orientation != spectral.FrequencyMajor {
		return nil, fmt.Errorf("unknown orientation code %d", header.Orientation)
	}

	grid := spectral.NewGrid(int(header.Rows), int(header.Cols), orientation)
	cells := make([]uint16, header.Cols)
	for row := range grid.Rows() {
		if err := binary.Read(r, binary.LittleEndian, cells); err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		dst := grid.Row(row)
		for c, bits := range cells {
			dst[c] = float64(float16.Frombits(bits).Float32())
		}
	}

	return grid, nil
}
