package transcode

import (
	"fmt"
	"io"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// EncodeWAV writes mono PCM as 16-bit WAV
func EncodeWAV(w io.WriteSeeker, pcm []float64, sampleRate int) error {
	pos := 0
	streamer := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(pcm) {
			return 0, false
		}
		n := copy2(samples, pcm[pos:])
		pos += n
		return n, true
	})

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(w, streamer, format); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes mono PCM to a 16-bit WAV file at path
func WriteWAVFile(path string, pcm []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeWAV(f, pcm, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copy2(dst [][2]float64, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i][0] = src[i]
		dst[i][1] = src[i]
	}
	return n
}
