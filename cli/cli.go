package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethogram-lab/boris-clip/config"
	"github.com/ethogram-lab/boris-clip/media"
	"github.com/ethogram-lab/boris-clip/pipeline"
)

const version = "1.1.0"

// Execute runs the root command and exits nonzero when any hard-severity
// failure occurred.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		outputDir  string
		behaviours []string

		padding     float64
		paddingPre  float64
		paddingPost float64

		pointPadding     float64
		pointPaddingPre  float64
		pointPaddingPost float64

		maxDuration float64
		maxClips    int

		fast       bool
		force      bool
		logLevel   string
		reportPath string
		probeCache string
	)

	cmd := &cobra.Command{
		Use:     "boris-clip BORIS_FILE [VIDEO...]",
		Short:   "Cut one video clip per behavioural bout in a BORIS annotation file",
		Version: version,
		Args:    cobra.MinimumNArgs(1),
		Long: `Extract video clips for each behavioural bout in a BORIS annotation file.

BORIS_FILE is a .boris project file, a tabular events CSV export, or an
aggregated events CSV export. VIDEO arguments are candidate video files;
observations are matched to them by embedded path or by filename.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := logrus.New()
			if !cmd.Flags().Changed("log-level") {
				logLevel = cfg.LogLevel
			}
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", logLevel)
			}
			log.SetLevel(level)

			if !cmd.Flags().Changed("output-dir") {
				outputDir = cfg.OutputDir
			}
			if !cmd.Flags().Changed("probe-cache") {
				probeCache = cfg.ProbeCache
			}

			flags := pipeline.PaddingFlags{
				Padding:          floatFlag(cmd, "padding", &padding),
				PaddingPre:       floatFlag(cmd, "padding-pre", &paddingPre),
				PaddingPost:      floatFlag(cmd, "padding-post", &paddingPost),
				PointPadding:     floatFlag(cmd, "point-padding", &pointPadding),
				PointPaddingPre:  floatFlag(cmd, "point-padding-pre", &pointPaddingPre),
				PointPaddingPost: floatFlag(cmd, "point-padding-post", &pointPaddingPost),
			}

			opts := pipeline.Options{
				OutputDir:    outputDir,
				Behaviours:   behaviours,
				Padding:      flags,
				PointDefault: cfg.PointPadding,
				MaxDuration:  floatFlag(cmd, "max-duration", &maxDuration),
				Fast:         fast,
				Force:        force,
				Tolerances: pipeline.Tolerances{
					Duration: cfg.DurationTolerance,
					FPS:      cfg.FPSTolerance,
				},
				ReportPath: reportPath,
			}
			if cmd.Flags().Changed("max-clips") {
				opts.MaxClips = &maxClips
			}

			prober, err := media.NewCachingProber(media.NewFFprobe(cfg.FFprobe, log), probeCache, log)
			if err != nil {
				return err
			}
			defer prober.Close()
			extractor := media.NewFFmpeg(cfg.FFmpeg, log)

			p := pipeline.New(prober, extractor, opts, log)
			result, err := p.Run(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}

			log.Infof("done: %d clip(s) written to %s", result.ClipsWritten, outputDir)
			if result.HardFailures > 0 {
				return fmt.Errorf("%d observation(s)/clip(s) failed", result.HardFailures)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outputDir, "output-dir", "o", "clips", "directory to write output clips into")
	f.StringArrayVarP(&behaviours, "behaviour", "b", nil, "only extract clips for this behaviour (repeatable)")
	f.Float64Var(&padding, "padding", 0, "seconds to add before and after each bout")
	f.Float64Var(&paddingPre, "padding-pre", 0, "seconds to add before each bout (overrides --padding for the pre side)")
	f.Float64Var(&paddingPost, "padding-post", 0, "seconds to add after each bout (overrides --padding for the post side)")
	f.Float64Var(&pointPadding, "point-padding", 5, "padding for point events, both sides (default 5s when no padding flags are given)")
	f.Float64Var(&pointPaddingPre, "point-padding-pre", 0, "pre-padding for point events (overrides --point-padding for the pre side)")
	f.Float64Var(&pointPaddingPost, "point-padding-post", 0, "post-padding for point events (overrides --point-padding for the post side)")
	f.Float64Var(&maxDuration, "max-duration", 0, "truncate clips longer than this many seconds (from the end, after padding)")
	f.IntVar(&maxClips, "max-clips", 0, "extract at most this many clips per (behaviour, subject) group")
	f.BoolVar(&fast, "fast", false, "stream-copy instead of re-encoding; cuts snap to the nearest keyframe")
	f.BoolVar(&force, "force", false, "treat media-mismatch and out-of-bounds errors as warnings")
	f.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&reportPath, "report", "", "write a YAML run report to this path")
	f.StringVar(&probeCache, "probe-cache", "", "sqlite file caching ffprobe results across runs")

	return cmd
}

// floatFlag returns the flag's value only when the user actually supplied
// it; padding precedence depends on which flags were set, not their values.
func floatFlag(cmd *cobra.Command, name string, val *float64) *float64 {
	if cmd.Flags().Changed(name) {
		return val
	}
	return nil
}
