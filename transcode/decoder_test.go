package transcode

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-stft/algorithms/generators"
	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/matryer/is"
)

const quantum = 1.0 / 32768

func writeWAV(t *testing.T, pcm []float64, sampleRate int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAVFile(path, pcm, sampleRate); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestDecodeMonoWAV(t *testing.T) {
	is := is.New(t)

	pcm := generators.Sine(440, 0.5, 8000, 8000)
	audio, err := Decode(writeWAV(t, pcm, 8000))
	is.NoErr(err)

	is.Equal(audio.SampleRate, 8000)
	is.Equal(audio.Channels, 1)
	is.Equal(audio.Format, "wav")
	is.Equal(len(audio.PCM), len(pcm))
	is.Equal(audio.Duration, time.Second)

	for i := range pcm {
		is.True(math.Abs(audio.PCM[i]-pcm[i]) <= 2*quantum) // 16-bit quantization
	}
}

func TestDecodeWAVKeepsAmplitude(t *testing.T) {
	is := is.New(t)

	pcm := []float64{0.5, -0.25, 0.1, 0, 0.9, -0.9}
	audio, err := Decode(writeWAV(t, pcm, 8000))
	is.NoErr(err)
	is.Equal(len(audio.PCM), len(pcm))

	for i := range pcm {
		is.True(math.Abs(audio.PCM[i]-pcm[i]) <= 2*quantum)
	}
}

func TestWAVScale(t *testing.T) {
	tests := []struct {
		precision int
		want      float64
	}{
		{1, 1},
		{2, 65535.0 / 32768},
		{3, 16777215.0 / 8388608},
	}

	for _, tt := range tests {
		is := is.New(t)
		is.Equal(wavScale(tt.precision), tt.want)
	}
}

func TestDecodeStereoWAVDownmixes(t *testing.T) {
	is := is.New(t)

	n := 1000
	pos := 0
	streamer := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= n {
			return 0, false
		}
		count := min(len(samples), n-pos)
		for i := range count {
			samples[i][0] = 0.5
			samples[i][1] = -0.25
		}
		pos += count
		return count, true
	})

	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	is.NoErr(err)
	is.NoErr(wav.Encode(f, streamer, beep.Format{SampleRate: 16000, NumChannels: 2, Precision: 2}))
	is.NoErr(f.Close())

	audio, err := Decode(path)
	is.NoErr(err)
	is.Equal(audio.Channels, 2)
	is.Equal(len(audio.PCM), n)
	for _, v := range audio.PCM {
		is.True(math.Abs(v-0.125) <= 2*quantum) // (0.5 - 0.25) / 2
	}
}

func TestMaxDurationAndNormalize(t *testing.T) {
	is := is.New(t)

	path := writeWAV(t, generators.Sine(100, 0.25, 8000, 16000), 8000)

	d := NewDecoder(&DecoderConfig{MaxDuration: 500 * time.Millisecond, Normalize: true})
	audio, err := d.DecodeFile(path)
	is.NoErr(err)
	is.Equal(len(audio.PCM), 4000)
	is.Equal(audio.Duration, 500*time.Millisecond)

	raw, err := NewDecoder(nil).DecodeFile(path)
	is.NoErr(err)
	rawPeak := 0.0
	for _, v := range raw.PCM {
		rawPeak = math.Max(rawPeak, math.Abs(v))
	}
	is.True(math.Abs(rawPeak-0.25) <= 2*quantum) // unnormalized input keeps its level

	peak := 0.0
	for _, v := range audio.PCM {
		peak = math.Max(peak, math.Abs(v))
	}
	is.True(math.Abs(peak-1) < 1e-12)
}

func TestDecodeErrors(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()

	mp3 := filepath.Join(dir, "song.mp3")
	is.NoErr(os.WriteFile(mp3, []byte("ID3"), 0o644))
	_, err := Decode(mp3)
	is.True(errors.Is(err, ErrUnsupportedFormat))

	_, err = Decode(filepath.Join(dir, "missing.wav"))
	is.True(errors.Is(err, os.ErrNotExist))

	_, err = NewDecoder(nil).DecodeWAV(bytes.NewReader([]byte("not a riff header at all")))
	is.True(err != nil)

	_, err = NewDecoder(nil).DecodeFLAC(bytes.NewReader([]byte("fLaX")))
	is.True(err != nil)
}

func TestIsSupported(t *testing.T) {
	is := is.New(t)

	is.True(IsSupported("a/b/c.WAV"))
	is.True(IsSupported("x.flac"))
	is.True(!IsSupported("x.csv"))
	is.True(!IsSupported("wav"))
	is.Equal(NewDecoder(nil).GetSupportedFormats(), []string{"wav", "flac"})
}
