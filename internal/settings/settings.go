// Package settings holds the user-facing conversion choices and translates
// them into the numeric parameters each codec expects.
package settings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"batchconv/internal/failure"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// Formats lists every output format in a stable order.
var Formats = []Format{FormatJPEG, FormatPNG, FormatWebP, FormatAVIF}

// Extension is the file extension written for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) MIME() string { return "image/" + string(f) }

func (f Format) Valid() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP, FormatAVIF:
		return true
	}
	return false
}

// ParseFormat accepts format names case-insensitively, with "jpg" as an alias.
func ParseFormat(s string) (Format, error) {
	v := Format(strings.ToLower(strings.TrimSpace(s)))
	if v == "jpg" {
		v = FormatJPEG
	}
	if !v.Valid() {
		return "", failure.Errorf(failure.KindInvalidSettings, "settings", "unknown output format %q", s)
	}
	return v, nil
}

type QualityTier string

const (
	TierOriginal QualityTier = "original"
	TierHigh     QualityTier = "high"
	TierMedium   QualityTier = "medium"
	TierLow      QualityTier = "low"
)

func (q QualityTier) Valid() bool {
	switch q {
	case TierOriginal, TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}

func ParseQualityTier(s string) (QualityTier, error) {
	v := QualityTier(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", failure.Errorf(failure.KindInvalidSettings, "settings", "unknown quality tier %q", s)
	}
	return v, nil
}

// Effort trades encode speed for output size at a fixed visual quality.
type Effort string

const (
	EffortFast   Effort = "fast"
	EffortNormal Effort = "normal"
	EffortMax    Effort = "max"
)

func (e Effort) Valid() bool {
	switch e {
	case EffortFast, EffortNormal, EffortMax:
		return true
	}
	return false
}

func ParseEffort(s string) (Effort, error) {
	v := Effort(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", failure.Errorf(failure.KindInvalidSettings, "settings", "unknown compression effort %q", s)
	}
	return v, nil
}

// Settings is one conversion run's configuration. Width 0 disables resizing;
// a non-nil Quality overrides Tier.
type Settings struct {
	Format         Format      `yaml:"outputFormat"`
	Tier           QualityTier `yaml:"qualityTier"`
	Quality        *int        `yaml:"quality,omitempty"`
	Lossless       bool        `yaml:"lossless"`
	Effort         Effort      `yaml:"compressionEffort"`
	Width          int         `yaml:"targetWidth"`
	Rename         bool        `yaml:"rename"`
	RemoveMetadata bool        `yaml:"removeMetadata"`
}

// Default mirrors the converter's initial form state.
func Default() Settings {
	return Settings{
		Format: FormatJPEG,
		Tier:   TierHigh,
		Effort: EffortNormal,
	}
}

// Validate checks every field independently of format combinations.
func (s Settings) Validate() error {
	if !s.Format.Valid() {
		return failure.Errorf(failure.KindInvalidSettings, "settings", "unknown output format %q", s.Format)
	}
	if !s.Tier.Valid() {
		return failure.Errorf(failure.KindInvalidSettings, "settings", "unknown quality tier %q", s.Tier)
	}
	if !s.Effort.Valid() {
		return failure.Errorf(failure.KindInvalidSettings, "settings", "unknown compression effort %q", s.Effort)
	}
	if s.Quality != nil && (*s.Quality < 0 || *s.Quality > 100) {
		return failure.Errorf(failure.KindInvalidSettings, "settings", "quality %d outside 0-100", *s.Quality)
	}
	if s.Width < 0 {
		return failure.Errorf(failure.KindInvalidSettings, "settings", "target width %d must be positive", s.Width)
	}
	return nil
}

func (s Settings) String() string {
	quality := string(s.Tier)
	if s.Quality != nil {
		quality = fmt.Sprintf("q%d", *s.Quality)
	}
	width := "orig"
	if s.Width > 0 {
		width = fmt.Sprintf("%dpx", s.Width)
	}
	return fmt.Sprintf("%s/%s/%s lossless=%t width=%s rename=%t strip=%t",
		s.Format, quality, s.Effort, s.Lossless, width, s.Rename, s.RemoveMetadata)
}

// Load reads a YAML settings profile. Keys that are absent keep their
// Default values.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return Parse(data)
}

// Parse decodes a YAML settings profile.
func Parse(data []byte) (Settings, error) {
	var raw struct {
		Format         string `yaml:"outputFormat"`
		Tier           string `yaml:"qualityTier"`
		Quality        *int   `yaml:"quality"`
		Lossless       bool   `yaml:"lossless"`
		Effort         string `yaml:"compressionEffort"`
		Width          *int   `yaml:"targetWidth"`
		Rename         bool   `yaml:"rename"`
		RemoveMetadata bool   `yaml:"removeMetadata"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, failure.New(failure.KindInvalidSettings, "parse settings", err)
	}

	s := Default()
	var err error
	if raw.Format != "" {
		if s.Format, err = ParseFormat(raw.Format); err != nil {
			return Settings{}, err
		}
	}
	if raw.Tier != "" {
		if s.Tier, err = ParseQualityTier(raw.Tier); err != nil {
			return Settings{}, err
		}
	}
	if raw.Effort != "" {
		if s.Effort, err = ParseEffort(raw.Effort); err != nil {
			return Settings{}, err
		}
	}
	if raw.Width != nil {
		s.Width = *raw.Width
	}
	s.Quality = raw.Quality
	s.Lossless = raw.Lossless
	s.Rename = raw.Rename
	s.RemoveMetadata = raw.RemoveMetadata

	return s, s.Validate()
}
