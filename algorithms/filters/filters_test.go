package filters

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-stft/algorithms/generators"
	"github.com/matryer/is"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	is := is.New(t)

	dc, err := NewDCBlocker(8000, 10)
	is.NoErr(err)

	out := dc.Apply(generators.Constant(8000, 0.5))
	// Settled output of a constant input decays toward zero
	is.True(math.Abs(out[len(out)-1]) < 1e-6)
	is.Equal(out[0], 0.5)
}

func TestDCBlockerPoleClamp(t *testing.T) {
	is := is.New(t)

	dc, err := NewDCBlocker(100, 1000)
	is.NoErr(err)
	is.Equal(dc.Pole(), 0.001)

	_, err = NewDCBlocker(0, 10)
	is.True(err != nil)
}

func TestDCBlockerReset(t *testing.T) {
	is := is.New(t)

	dc, err := NewDCBlocker(8000, 10)
	is.NoErr(err)

	first := dc.Apply([]float64{1, 1, 1})
	dc.Reset()
	second := dc.Apply([]float64{1, 1, 1})
	is.Equal(first, second)
}

func TestPreEmphasis(t *testing.T) {
	is := is.New(t)

	out, err := PreEmphasis([]float64{1, 1, 1, 0}, 0.5)
	is.NoErr(err)
	is.Equal(out, []float64{1, 0.5, 0.5, -0.5})

	_, err = PreEmphasis([]float64{1}, 1)
	is.True(err != nil)
	_, err = PreEmphasis([]float64{1}, -0.1)
	is.True(err != nil)
}

func TestChain(t *testing.T) {
	is := is.New(t)

	signal := []float64{1, 2, 3}

	out, err := Chain{}.Apply(signal, 8000)
	is.NoErr(err)
	is.True(!Chain{}.Enabled())
	is.True(&out[0] == &signal[0])

	chain := Chain{DCCutoffHz: 20, PreEmphasis: DefaultPreEmphasis}
	is.True(chain.Enabled())
	out, err = chain.Apply(signal, 8000)
	is.NoErr(err)
	is.Equal(len(out), 3)
	is.Equal(signal, []float64{1, 2, 3})
}
