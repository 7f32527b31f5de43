package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-stft/algorithms/generators"
	"github.com/RyanBlaney/sonido-stft/analysis"
	"github.com/RyanBlaney/sonido-stft/config"
	"github.com/RyanBlaney/sonido-stft/export"
	"github.com/RyanBlaney/sonido-stft/logging"
	"github.com/RyanBlaney/sonido-stft/version"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "sonido-stft",
	Short: "Short-time Fourier transform of audio files",
	Long: `sonido-stft frames a signal, applies a window, takes the FFT of every
frame and writes the magnitude, power, decibel or phase spectrogram as CSV,
half-precision binary or SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		return setupLogger(cmd.ErrOrStderr(), level, format)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the content presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, ct := range config.ContentTypes() {
			preset, err := config.ForContent(ct)
			if err != nil {
				return err
			}
			rate := "input"
			if preset.SampleRate > 0 {
				rate = fmt.Sprintf("%g Hz", preset.SampleRate)
			}
			bold.Fprintf(out, "%-10s", ct)
			fmt.Fprintf(out, " window=%-5d hop=%-4d %-8s rate=%s\n",
				preset.WindowSize, preset.HopSize, preset.WindowType, rate)
		}
		return nil
	},
}

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the spectrogram of one file or of the demo signal",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		demo, _ := cmd.Flags().GetBool("demo")
		output, _ := cmd.Flags().GetString("output")

		if input == "" && !demo {
			return fmt.Errorf("--input or --demo is required")
		}
		if input != "" && demo {
			return fmt.Errorf("--input and --demo are mutually exclusive")
		}

		cfg, err := resolveConfig(cmd, demo)
		if err != nil {
			return err
		}
		if err := setupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}

		analyzer, err := analysis.NewAnalyzer(cfg, logging.GetGlobalLogger())
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var an *analysis.Analysis
		if demo {
			an, err = analyzer.AnalyzeSignal(ctx, generators.Demo(), generators.DemoSampleRate, "demo")
		} else {
			an, err = analyzer.AnalyzeFile(ctx, input)
		}
		if err != nil {
			return err
		}

		written, err := writeOutput(ctx, cmd.OutOrStdout(), analyzer, an, input, output)
		if err != nil {
			return err
		}

		if output != "-" {
			printSummary(cmd.OutOrStdout(), an, written)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Analyze every WAV or FLAC file that appears in DIR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd, false)
		if err != nil {
			return err
		}
		if err := setupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}

		analyzer, err := analysis.NewAnalyzer(cfg, logging.GetGlobalLogger())
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		watcher := analysis.NewWatcher(analyzer, args[0])
		printed := make(chan struct{})
		go func() {
			defer close(printed)
			for p := range watcher.Results() {
				if p.Err == nil {
					printSummary(cmd.OutOrStdout(), p.Analysis, p.Output)
				}
			}
		}()

		err = watcher.Run(ctx)
		<-printed
		return err
	},
}

// writeOutput exports the analysis and returns where it went. "-" streams
// CSV to out.
func writeOutput(ctx context.Context, out io.Writer, analyzer *analysis.Analyzer, an *analysis.Analysis, input, output string) (string, error) {
	settings := analyzer.Output()

	if output == "-" {
		if settings.Format != export.FormatCSV {
			return "", fmt.Errorf("only csv can be written to stdout, got %s", settings.Format)
		}
		grid, err := an.Result.View(settings.View)
		if err != nil {
			return "", err
		}
		return "stdout", export.WriteCSV(out, grid, settings.Orientation)
	}

	if output == "" {
		if input == "" {
			input = an.Name()
		}
		output = analyzer.OutputPath(input)
	}
	return analyzer.Write(ctx, an, output)
}

func printSummary(out io.Writer, an *analysis.Analysis, written string) {
	r := an.Result

	bold.Fprintf(out, "%s", an.Name())
	fmt.Fprintf(out, " (%s)\n", an.ID)
	fmt.Fprintf(out, "  frames      %d x %d bins\n", r.FrameCount, r.FrequencyBinCount)
	fmt.Fprintf(out, "  window      %d %s, hop %d (%.1f%% overlap)\n",
		r.Config.WindowSize, r.Config.WindowType, r.Config.HopSize, r.OverlapPercent)
	fmt.Fprintf(out, "  resolution  %.4f s, %.4f Hz\n", r.FrameTimeStep, r.FrequencyResolution)
	if r.FrameCount > 0 {
		fmt.Fprint(out, "  dominant    ")
		yellow.Fprintf(out, "%.2f Hz\n", an.Summary.DominantHz)
	}
	fmt.Fprintf(out, "  elapsed     %s\n", r.Elapsed)
	fmt.Fprint(out, "  written     ")
	cyan.Fprintln(out, written)
}

func setupLogger(w io.Writer, level, format string) error {
	l := logrus.New()
	l.SetOutput(w)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	logger := logging.NewLogrusLogger(l)
	logger.SetLevel(logging.ParseLevel(level))
	logging.SetGlobalLogger(logger)
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	computeCmd.Flags().StringP("input", "i", "", "WAV or FLAC file to analyze")
	computeCmd.Flags().Bool("demo", false, "Analyze the built-in two-tone demo signal")
	computeCmd.Flags().StringP("output", "o", "", "Output path, \"-\" for CSV on stdout (default: input with the format's extension)")
	addConfigFlags(computeCmd)
	addConfigFlags(watchCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
