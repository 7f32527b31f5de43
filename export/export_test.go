package export

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/sonido-stft/algorithms/generators"
	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
	"github.com/RyanBlaney/sonido-stft/logging"
	"github.com/matryer/is"
)

func demoResult(t *testing.T) *spectral.Result {
	t.Helper()

	cfg, err := spectral.NewConfig(62, 31, generators.DemoSampleRate, windowing.Hann)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	engine := spectral.NewEngine(spectral.WithLogger(&logging.NoOpLogger{}))
	result, err := engine.Compute(context.Background(), generators.Demo(), cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	return result
}

func TestWriteCSVFormat(t *testing.T) {
	is := is.New(t)

	g, err := spectral.GridFromRows([][]float64{{1, -0.5}, {0, 1e-10}}, spectral.TimeMajor)
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(WriteCSV(&buf, g, spectral.TimeMajor))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	is.Equal(len(lines), 2)
	is.Equal(lines[0], "1.000000000000000000e+00,-5.000000000000000000e-01")
	is.Equal(lines[1], "0.000000000000000000e+00,1.000000000000000036e-10")
}

func TestCSVRoundTripBothOrientations(t *testing.T) {
	result := demoResult(t)
	db := result.Decibels()

	for _, o := range []spectral.Orientation{spectral.TimeMajor, spectral.FrequencyMajor} {
		t.Run(o.String(), func(t *testing.T) {
			is := is.New(t)

			var buf bytes.Buffer
			is.NoErr(WriteCSV(&buf, db, o))

			back, err := ReadCSV(&buf, o)
			is.NoErr(err)
			is.Equal(back.Orientation(), o)
			is.Equal(back.Frames(), 7)
			is.Equal(back.Bins(), 32)

			diff, err := back.Oriented(spectral.TimeMajor).MaxAbsDiff(db)
			is.NoErr(err)
			is.Equal(diff, 0.0) // 18 digits survive the text round trip
		})
	}
}

func TestReadCSVRejectsGarbage(t *testing.T) {
	is := is.New(t)

	_, err := ReadCSV(strings.NewReader("1,2\n3,abc\n"), spectral.TimeMajor)
	is.True(err != nil)

	_, err = ReadCSV(strings.NewReader("1,2\n3\n"), spectral.TimeMajor)
	is.True(err != nil) // ragged rows

	empty, err := ReadCSV(strings.NewReader(""), spectral.TimeMajor)
	is.NoErr(err)
	is.Equal(empty.Rows(), 0)
}

func TestFloat16RoundTrip(t *testing.T) {
	is := is.New(t)

	db := demoResult(t).Decibels().Transpose()

	var buf bytes.Buffer
	is.NoErr(WriteFloat16(&buf, db))
	is.Equal(buf.Len(), 14+2*32*7) // header plus one half per cell
	is.True(bytes.HasPrefix(buf.Bytes(), []byte(Float16Magic)))

	back, err := ReadFloat16(&buf)
	is.NoErr(err)
	is.Equal(back.Orientation(), spectral.FrequencyMajor)
	is.Equal(back.Rows(), 32)
	is.Equal(back.Cols(), 7)

	for r := range back.Rows() {
		for c := range back.Cols() {
			want := db.At(r, c)
			is.True(math.Abs(back.At(r, c)-want) <= math.Abs(want)*1e-3+1e-3) // half precision
		}
	}
}

func TestFloat16RejectsForeignStream(t *testing.T) {
	is := is.New(t)

	_, err := ReadFloat16(bytes.NewReader([]byte("RIFF\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")))
	is.True(errors.Is(err, ErrBadMagic))

	_, err = ReadFloat16(bytes.NewReader([]byte("SS")))
	is.True(err != nil)
}

func TestWriteFile(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	db := demoResult(t).Decibels()

	csvPath := filepath.Join(dir, "out", "demo.csv")
	is.NoErr(WriteFile(csvPath, FormatCSV, db, spectral.FrequencyMajor))
	f, err := os.Open(csvPath)
	is.NoErr(err)
	defer f.Close()
	back, err := ReadCSV(f, spectral.FrequencyMajor)
	is.NoErr(err)
	is.Equal(back.Rows(), 32) // rows are bins, as in scipy's Zxx

	f16Path := filepath.Join(dir, "demo.f16")
	is.NoErr(WriteFile(f16Path, FormatFloat16, db, spectral.TimeMajor))
	raw, err := os.ReadFile(f16Path)
	is.NoErr(err)
	half, err := ReadFloat16(bytes.NewReader(raw))
	is.NoErr(err)
	is.Equal(half.Rows(), 7)

	is.True(WriteFile(filepath.Join(dir, "x.db"), FormatSQLite, db, spectral.TimeMajor) != nil)
}

func TestParseFormat(t *testing.T) {
	is := is.New(t)

	for in, want := range map[string]Format{"csv": FormatCSV, "F16": FormatFloat16, "sqlite": FormatSQLite, "": FormatCSV} {
		got, err := ParseFormat(in)
		is.NoErr(err)
		is.Equal(got, want)
	}
	_, err := ParseFormat("parquet")
	is.True(err != nil)

	is.Equal(FormatFloat16.Extension(), ".f16")
	is.Equal(ReplaceExtension("/tmp/a/song.flac", ".csv"), "/tmp/a/song.csv")
}

func TestSQLiteSink(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	sink, err := OpenSQLite(filepath.Join(t.TempDir(), "spectrograms.db"))
	is.NoErr(err)
	defer sink.Close()

	result := demoResult(t)
	id, err := sink.Save(ctx, "demo", result, spectral.ViewDecibels)
	is.NoErr(err)
	is.True(id > 0)

	rec, grid, err := sink.Load(ctx, id)
	is.NoErr(err)
	is.Equal(rec.Name, "demo")
	is.Equal(rec.View, "db")
	is.Equal(rec.WindowSize, 62)
	is.Equal(rec.HopSize, 31)
	is.Equal(rec.WindowType, "hann")
	is.Equal(rec.Frames, 7)
	is.Equal(rec.Bins, 32)

	diff, err := grid.MaxAbsDiff(result.Decibels())
	is.NoErr(err)
	is.Equal(diff, 0.0)

	second, err := sink.Save(ctx, "demo-phase", result, spectral.ViewPhase)
	is.NoErr(err)

	records, err := sink.List(ctx)
	is.NoErr(err)
	is.Equal(len(records), 2)
	is.Equal(records[1].ID, second)

	is.NoErr(sink.Delete(ctx, id))
	_, _, err = sink.Load(ctx, id)
	is.True(errors.Is(err, ErrNotFound))
	is.True(errors.Is(sink.Delete(ctx, id), ErrNotFound))
}
