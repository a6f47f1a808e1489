package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Root holds run-independent settings: tool locations, tolerances and
// defaults. Flags beat environment beats file beats these defaults.
type Root struct {
	FFmpeg            string  `mapstructure:"ffmpeg"`
	FFprobe           string  `mapstructure:"ffprobe"`
	OutputDir         string  `mapstructure:"output_dir"`
	LogLevel          string  `mapstructure:"log_level"`
	PointPadding      float64 `mapstructure:"point_padding"`
	FPSTolerance      float64 `mapstructure:"fps_tolerance"`
	DurationTolerance float64 `mapstructure:"duration_tolerance"`
	ProbeCache        string  `mapstructure:"probe_cache"`
}

// Load reads an optional borisclip.yaml from the working directory or the
// user config dir, then applies BORISCLIP_* environment overrides.
func Load() (*Root, error) {
	v := viper.New()
	v.SetConfigName("borisclip")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "borisclip"))
	}
	v.SetEnvPrefix("BORISCLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ffmpeg", "ffmpeg")
	v.SetDefault("ffprobe", "ffprobe")
	v.SetDefault("output_dir", "clips")
	v.SetDefault("log_level", "info")
	v.SetDefault("point_padding", 5.0)
	v.SetDefault("fps_tolerance", 0.1)
	v.SetDefault("duration_tolerance", 1.0)
	v.SetDefault("probe_cache", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
