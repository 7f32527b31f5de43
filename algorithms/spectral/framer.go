package spectral

// FrameCount returns how many full frames of windowSize fit in a signal of
// signalLength samples when frames start every hopSize samples. Frames that
// would run past the end are dropped: there is no padding and no boundary
// extension.
func FrameCount(signalLength, windowSize, hopSize int) int {
	if windowSize <= 0 || hopSize <= 0 || signalLength < windowSize {
		return 0
	}
	return (signalLength-windowSize)/hopSize + 1
}

// FrameOffsets returns the start offset of every emitted frame
func FrameOffsets(signalLength, windowSize, hopSize int) []int {
	n := FrameCount(signalLength, windowSize, hopSize)
	offsets := make([]int, n)
	for k := range n {
		offsets[k] = k * hopSize
	}
	return offsets
}

// Framer hands out non-owning frame views of a signal
type Framer struct {
	signal     []float64
	windowSize int
	hopSize    int
	count      int
}

// NewFramer creates a framer over signal. The signal is borrowed, never copied.
func NewFramer(signal []float64, windowSize, hopSize int) *Framer {
	return &Framer{
		signal:     signal,
		windowSize: windowSize,
		hopSize:    hopSize,
		count:      FrameCount(len(signal), windowSize, hopSize),
	}
}

// Count returns the number of frames
func (f *Framer) Count() int {
	return f.count
}

// Offset returns the first sample index of frame k
func (f *Framer) Offset(k int) int {
	return k * f.hopSize
}

// Frame returns the view of frame k. The slice aliases the signal and is
// capped so appends cannot write into it.
func (f *Framer) Frame(k int) []float64 {
	start := f.Offset(k)
	end := start + f.windowSize
	return f.signal[start:end:end]
}
