// Package metadata reads embedded image metadata for display and removes it
// from image files.
package metadata

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"batchconv/internal/media"
	"batchconv/pkg/imgutil"
)

// Extract returns a tag name → display string view of the file's embedded
// metadata. It never fails: unreadable or missing blocks yield an empty map,
// and a tag that cannot be formatted is skipped without affecting the rest.
func Extract(f media.SourceFile) map[string]string {
	out := make(map[string]string)

	for _, tag := range exifTags(f.Data) {
		value := strings.TrimSpace(tag.Formatted)
		if tag.TagName == "" || value == "" {
			continue
		}
		if _, seen := out[tag.TagName]; !seen {
			out[tag.TagName] = value
		}
	}

	if imgutil.Detect(f.Data) == imgutil.KindPNG {
		for key, value := range pngText(f.Data) {
			if _, seen := out[key]; !seen {
				out[key] = value
			}
		}
	}

	return out
}

// Analysis summarises the privacy-relevant parts of a file's metadata.
type Analysis struct {
	HasGPS       bool
	GPSCount     int
	HasModel     bool
	HasTimestamp bool
	SerialCount  int
}

// Leaks counts the identifying tags that cleaning removes.
func (a Analysis) Leaks() int { return a.GPSCount + a.SerialCount }

// Categories names the kinds of metadata present, in display order.
func (a Analysis) Categories() []string {
	cats := []string{}
	if a.HasGPS {
		cats = append(cats, "GPS")
	}
	if a.HasModel {
		cats = append(cats, "Device Model")
	}
	if a.HasTimestamp {
		cats = append(cats, "Timestamp")
	}
	return cats
}

func Analyze(f media.SourceFile) Analysis {
	analysis := Analysis{}

	for _, tag := range exifTags(f.Data) {
		name := tag.TagName
		lower := strings.ToLower(name)

		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			analysis.HasGPS = true
			analysis.GPSCount++
		}
		if name == "Model" || name == "CameraModelName" {
			analysis.HasModel = true
		}
		if name == "DateTimeOriginal" || name == "DateTimeDigitized" || name == "DateTime" {
			analysis.HasTimestamp = true
		}
		if strings.Contains(lower, "serial") {
			analysis.SerialCount++
		}
	}

	if imgutil.Detect(f.Data) == imgutil.KindPNG {
		for key := range pngText(f.Data) {
			applyPNGKey(&analysis, key)
		}
		if hasPNGChunk(f.Data, "tIME") {
			analysis.HasTimestamp = true
		}
	}

	return analysis
}

// rawExif locates the TIFF-structured EXIF block anywhere in data.
func rawExif(data []byte) (raw []byte) {
	defer func() {
		if recover() != nil {
			raw = nil
		}
	}()

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return nil
	}
	return raw
}

func exifTags(data []byte) (tags []exif.ExifTag) {
	defer func() {
		if recover() != nil {
			tags = nil
		}
	}()

	raw := rawExif(data)
	if len(raw) == 0 {
		return nil
	}
	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil && len(tags) == 0 {
		return nil
	}
	return tags
}

func applyPNGKey(analysis *Analysis, key string) {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "gps") || strings.Contains(lower, "latitude") || strings.Contains(lower, "longitude") {
		analysis.HasGPS = true
	}
	if strings.Contains(lower, "model") || strings.Contains(lower, "make") {
		analysis.HasModel = true
	}
	if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
		analysis.HasTimestamp = true
	}
}
