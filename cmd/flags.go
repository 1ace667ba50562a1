package cmd

import (
	"github.com/spf13/cobra"

	"batchconv/internal/settings"
)

// settingsFlags are the conversion options shared by convert and watch.
type settingsFlags struct {
	config        string
	format        string
	quality       string
	qualityValue  int
	lossless      bool
	effort        string
	width         int
	rename        bool
	stripMetadata bool
	preserveICC   bool
	workers       int
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "YAML settings profile; flags given explicitly override it")
	fl.StringVarP(&f.format, "format", "f", "jpeg", "output format: jpeg, png, webp or avif")
	fl.StringVarP(&f.quality, "quality", "q", "high", "quality tier: original, high, medium or low")
	fl.IntVar(&f.qualityValue, "quality-value", 0, "explicit quality 0-100, overrides --quality")
	fl.BoolVar(&f.lossless, "lossless", false, "lossless output (png, webp, avif)")
	fl.StringVar(&f.effort, "effort", "normal", "compression effort: fast, normal or max")
	fl.IntVarP(&f.width, "width", "w", 0, "scale down to this width, keeping aspect ratio (0 keeps size)")
	fl.BoolVar(&f.rename, "rename", false, "give outputs generated names instead of the source name")
	fl.BoolVar(&f.stripMetadata, "strip-metadata", false, "remove embedded metadata before converting")
	fl.BoolVar(&f.preserveICC, "preserve-icc", false, "keep ICC color profiles when stripping metadata")
	fl.IntVar(&f.workers, "workers", 0, "parallel conversions (default: number of CPUs)")
}

// resolve builds the run's settings: defaults, then the profile if one is
// given, then flags. Without a profile every flag applies; with one only the
// flags set on the command line do.
func (f *settingsFlags) resolve(cmd *cobra.Command) (settings.Settings, error) {
	s := settings.Default()
	if f.config != "" {
		loaded, err := settings.Load(f.config)
		if err != nil {
			return s, err
		}
		s = loaded
	}
	apply := func(name string) bool {
		return f.config == "" || cmd.Flags().Changed(name)
	}

	var err error
	if apply("format") {
		if s.Format, err = settings.ParseFormat(f.format); err != nil {
			return s, err
		}
	}
	if apply("quality") {
		if s.Tier, err = settings.ParseQualityTier(f.quality); err != nil {
			return s, err
		}
	}
	if apply("effort") {
		if s.Effort, err = settings.ParseEffort(f.effort); err != nil {
			return s, err
		}
	}
	if cmd.Flags().Changed("quality-value") {
		q := f.qualityValue
		s.Quality = &q
	}
	if apply("lossless") {
		s.Lossless = f.lossless
	}
	if apply("width") {
		s.Width = f.width
	}
	if apply("rename") {
		s.Rename = f.rename
	}
	if apply("strip-metadata") {
		s.RemoveMetadata = f.stripMetadata
	}

	return s, s.Validate()
}
