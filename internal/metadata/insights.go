package metadata

import (
	"bytes"
	"fmt"
	"strings"

	goexif "github.com/rwcarlsen/goexif/exif"

	"batchconv/internal/media"
)

// Insight is a human-readable note about what a file's metadata reveals.
type Insight struct {
	Kind    string
	Message string
}

// Insights explains the privacy impact of the metadata in f. Files without
// metadata produce no insights.
func Insights(f media.SourceFile) []Insight {
	tags := Extract(f)
	if len(tags) == 0 {
		return nil
	}

	x := decodeExif(f.Data)
	insights := []Insight{}

	if loc := locationInsight(x); loc != nil {
		insights = append(insights, *loc, Insight{
			Kind:    "Location",
			Message: "Exact coordinates can reveal home, workplace, or travel patterns.",
		})
	}
	if device := deviceInsight(tags); device != nil {
		insights = append(insights, *device)
	}
	if ts := timestampInsight(x, tags); ts != nil {
		insights = append(insights, *ts, Insight{
			Kind:    "Timeline",
			Message: "Capture timestamps can expose routines and time zones.",
		})
	}
	for key := range tags {
		if strings.Contains(strings.ToLower(key), "serial") {
			insights = append(insights, Insight{Kind: "Identifier", Message: "Unique device identifiers (serial numbers) are present."})
			break
		}
	}

	return insights
}

func decodeExif(data []byte) (x *goexif.Exif) {
	defer func() {
		if recover() != nil {
			x = nil
		}
	}()

	raw := rawExif(data)
	if len(raw) == 0 {
		return nil
	}
	x, err := goexif.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	return x
}

func locationInsight(x *goexif.Exif) *Insight {
	if x == nil {
		return nil
	}
	lat, lon, err := x.LatLong()
	if err != nil {
		return nil
	}
	return &Insight{Kind: "Location", Message: fmt.Sprintf("Approx location: %.5f, %.5f", lat, lon)}
}

func deviceInsight(tags map[string]string) *Insight {
	device := strings.TrimSpace(tags["Make"] + " " + tags["Model"])
	if device == "" {
		device = tags["CameraModelName"]
	}
	if device == "" {
		return nil
	}

	msg := "Device: " + device
	if kind := inferDeviceType(strings.ToLower(device)); kind != "" {
		msg += " (" + kind + ")"
	}
	return &Insight{Kind: "Device", Message: msg}
}

func timestampInsight(x *goexif.Exif, tags map[string]string) *Insight {
	if x != nil {
		if t, err := x.DateTime(); err == nil {
			return &Insight{Kind: "Timeline", Message: fmt.Sprintf("Captured: %s (timezone unknown)", t.Format("2006-01-02 15:04:05"))}
		}
	}
	for _, key := range []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"} {
		if ts := tags[key]; ts != "" {
			return &Insight{Kind: "Timeline", Message: fmt.Sprintf("Captured: %s (timezone unknown)", strings.Replace(ts, ":", "-", 2))}
		}
	}
	return nil
}

func inferDeviceType(device string) string {
	switch {
	case strings.Contains(device, "iphone"),
		strings.Contains(device, "pixel"),
		strings.Contains(device, "galaxy"),
		strings.Contains(device, "android"):
		return "smartphone"
	case strings.Contains(device, "ipad"),
		strings.Contains(device, "tablet"):
		return "tablet"
	case strings.Contains(device, "gopro"):
		return "action camera"
	case strings.Contains(device, "dji"):
		return "drone"
	case strings.Contains(device, "canon"),
		strings.Contains(device, "nikon"),
		strings.Contains(device, "sony"),
		strings.Contains(device, "fujifilm"),
		strings.Contains(device, "leica"):
		return "camera"
	}
	return ""
}
