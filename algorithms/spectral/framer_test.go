package spectral

import (
	"testing"

	"github.com/matryer/is"
)

func TestFrameCount(t *testing.T) {
	tests := []struct {
		name                string
		length, window, hop int
		want                int
	}{
		{"reference scenario", 250, 62, 31, 7},
		{"exactly one window", 62, 62, 31, 1},
		{"one sample short", 61, 62, 31, 0},
		{"empty signal", 0, 4, 2, 0},
		{"half overlap", 10, 4, 2, 4},
		{"no overlap", 10, 4, 4, 2},
		{"no overlap trailing partial", 11, 4, 4, 2},
		{"no overlap exact fit", 12, 4, 4, 3},
		{"hop of one", 5, 3, 1, 3},
		{"non-positive window", 10, 0, 1, 0},
		{"non-positive hop", 10, 4, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(FrameCount(tt.length, tt.window, tt.hop), tt.want)
		})
	}
}

func TestFrameOffsetsStayInsideSignal(t *testing.T) {
	is := is.New(t)

	offsets := FrameOffsets(10, 4, 3)
	is.Equal(offsets, []int{0, 3, 6})

	for _, length := range []int{62, 100, 250, 251, 1000} {
		for _, off := range FrameOffsets(length, 62, 31) {
			is.True(off+62 <= length) // no frame reads past the end
		}
	}

	is.Equal(len(FrameOffsets(3, 4, 1)), 0)
}

func TestFramerViewsAliasSignal(t *testing.T) {
	is := is.New(t)

	signal := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	f := NewFramer(signal, 4, 3)
	is.Equal(f.Count(), 3)

	for k := range f.Count() {
		frame := f.Frame(k)
		is.Equal(len(frame), 4)
		is.Equal(cap(frame), 4) // capped so appends reallocate
		is.Equal(frame[0], float64(k*3))
		is.Equal(f.Offset(k), k*3)
	}

	frame := f.Frame(1)
	_ = append(frame, 100)
	is.Equal(signal[7], 7.0) // append did not write into the signal
}
