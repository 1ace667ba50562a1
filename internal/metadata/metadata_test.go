package metadata

import (
	"bytes"
	"errors"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"batchconv/internal/codec"
	"batchconv/internal/failure"
	"batchconv/internal/media"
	"batchconv/internal/raster"
	"batchconv/internal/settings"
	"batchconv/internal/testutil"
)

var modTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func jpegWithExif(t *testing.T) media.SourceFile {
	t.Helper()
	return media.New("sample.jpg", "image/jpeg", testutil.WithJPEGExif(t, testutil.JPEG(t, 32, 24)), modTime)
}

func pngWithMetadata(t *testing.T) media.SourceFile {
	t.Helper()
	return media.New("sample.png", "image/png", testutil.WithPNGMetadata(t, testutil.PNG(t, 32, 24)), modTime)
}

func TestExtract(t *testing.T) {
	for _, f := range []media.SourceFile{jpegWithExif(t), pngWithMetadata(t)} {
		tags := Extract(f)
		if tags["Model"] != "TestCam" {
			t.Fatalf("%s: Model = %q, want TestCam (tags %v)", f.Name, tags["Model"], tags)
		}
		if _, ok := tags["DateTime"]; !ok {
			t.Fatalf("%s: expected DateTime tag, got %v", f.Name, tags)
		}
	}
}

func TestExtractWithoutMetadata(t *testing.T) {
	f := media.New("plain.png", "image/png", testutil.PNG(t, 8, 8), modTime)
	if tags := Extract(f); len(tags) != 0 {
		t.Fatalf("expected no tags, got %v", tags)
	}

	garbage := media.New("junk.jpg", "image/jpeg", []byte("definitely not an image"), modTime)
	if tags := Extract(garbage); len(tags) != 0 {
		t.Fatalf("expected no tags for garbage input, got %v", tags)
	}
}

func TestExtractPNGText(t *testing.T) {
	data := testutil.PNG(t, 4, 4)
	insertAt := len(data) - 12
	var buf bytes.Buffer
	buf.Write(data[:insertAt])
	buf.Write(testutil.PNGChunk("tEXt", []byte("Comment\x00hello")))
	buf.Write(testutil.PNGChunk("iTXt", []byte("Author\x00\x00\x00en\x00\x00Ada")))
	buf.Write(data[insertAt:])

	tags := Extract(media.New("text.png", "image/png", buf.Bytes(), modTime))
	if tags["Comment"] != "hello" || tags["Author"] != "Ada" {
		t.Fatalf("unexpected text tags: %v", tags)
	}
}

func TestAnalyze(t *testing.T) {
	for _, f := range []media.SourceFile{jpegWithExif(t), pngWithMetadata(t)} {
		cats := Analyze(f).Categories()
		if !contains(cats, "Device Model") || !contains(cats, "Timestamp") {
			t.Fatalf("%s: expected model and timestamp categories, got %v", f.Name, cats)
		}
	}
}

func TestInsights(t *testing.T) {
	insights := Insights(jpegWithExif(t))

	var messages []string
	for _, in := range insights {
		messages = append(messages, in.Message)
	}
	joined := strings.Join(messages, "\n")
	if !strings.Contains(joined, "Device: TestCam") {
		t.Fatalf("expected device insight, got %q", joined)
	}
	if !strings.Contains(joined, "Captured: 2024-01-02 03:04:05") {
		t.Fatalf("expected capture time insight, got %q", joined)
	}

	if got := Insights(media.New("plain.png", "image/png", testutil.PNG(t, 4, 4), modTime)); len(got) != 0 {
		t.Fatalf("expected no insights for a clean file, got %v", got)
	}
}

func TestStripJPEG(t *testing.T) {
	src := jpegWithExif(t)
	orig := append([]byte{}, src.Data...)
	s := NewStripper(codec.NewDefaultRegistry())

	out, err := s.Strip(src)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if !bytes.Equal(src.Data, orig) {
		t.Fatalf("Strip modified its input")
	}
	if out.Name != src.Name || out.MIME != src.MIME || out.Size != int64(len(out.Data)) {
		t.Fatalf("unexpected identity after strip: %+v", out)
	}
	if out.Size >= src.Size {
		t.Fatalf("expected stripped file to shrink: %d >= %d", out.Size, src.Size)
	}
	if tags := Extract(out); len(tags) != 0 {
		t.Fatalf("expected no tags after strip, got %v", tags)
	}

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode stripped JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("stripped JPEG is %dx%d", b.Dx(), b.Dy())
	}
}

func TestStripJPEGComments(t *testing.T) {
	data := testutil.JPEG(t, 8, 8)
	comment := []byte("secret")
	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, markerCOM, 0x00, byte(len(comment) + 2)})
	buf.Write(comment)
	buf.Write(data[2:])

	out, err := stripJPEG(buf.Bytes(), false)
	if err != nil {
		t.Fatalf("stripJPEG: %v", err)
	}
	if bytes.Contains(out, comment) {
		t.Fatalf("comment segment survived strip")
	}
}

func TestStripPNG(t *testing.T) {
	src := pngWithMetadata(t)
	out, err := NewStripper(codec.NewDefaultRegistry()).Strip(src)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	for _, name := range []string{"tEXt", "tIME", "eXIf"} {
		if hasPNGChunk(out.Data, name) {
			t.Fatalf("%s chunk survived strip", name)
		}
	}
	if tags := Extract(out); len(tags) != 0 {
		t.Fatalf("expected no tags after strip, got %v", tags)
	}
	if len(Analyze(out).Categories()) != 0 {
		t.Fatalf("expected no categories after strip")
	}

	img, err := png.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode stripped PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("stripped PNG is %dx%d", b.Dx(), b.Dy())
	}
}

func TestStripPNGPreserveICC(t *testing.T) {
	data := testutil.PNG(t, 4, 4)
	const ihdrEnd = 8 + 12 + 13
	var buf bytes.Buffer
	buf.Write(data[:ihdrEnd])
	buf.Write(testutil.PNGChunk("iCCP", []byte("profile\x00\x00xx")))
	buf.Write(data[ihdrEnd:])
	src := media.New("icc.png", "image/png", buf.Bytes(), modTime)

	s := NewStripper(codec.NewDefaultRegistry())
	dropped, err := s.Strip(src)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if hasPNGChunk(dropped.Data, "iCCP") {
		t.Fatalf("expected iCCP to be removed by default")
	}

	s.PreserveICC = true
	kept, err := s.Strip(src)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if !hasPNGChunk(kept.Data, "iCCP") {
		t.Fatalf("expected iCCP to be kept with PreserveICC")
	}
}

func TestStripWebPReencodes(t *testing.T) {
	reg := codec.NewDefaultRegistry()
	ras, err := raster.FromImage(testutil.Gradient(20, 10))
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	params, err := settings.Translate(settings.Settings{Format: settings.FormatWebP, Tier: settings.TierHigh, Effort: settings.EffortFast})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	data, err := reg.Encode(ras, params)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, err := NewStripper(reg).Strip(media.New("pic.webp", "image/webp", data, modTime))
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	back, err := reg.Decode(out.Data, "image/webp")
	if err != nil {
		t.Fatalf("decode stripped WebP: %v", err)
	}
	if back.Width() != 20 || back.Height() != 10 {
		t.Fatalf("stripped WebP is %dx%d", back.Width(), back.Height())
	}
}

func TestStripMalformed(t *testing.T) {
	s := NewStripper(codec.NewDefaultRegistry())
	for _, mime := range []string{"image/jpeg", "image/webp"} {
		_, err := s.Strip(media.New("bad", mime, []byte("definitely not an image"), modTime))
		if !errors.Is(err, failure.ErrMetadataStrip) {
			t.Fatalf("%s: expected MetadataStripError, got %v", mime, err)
		}
	}

	truncated := testutil.WithJPEGExif(t, testutil.JPEG(t, 8, 8))[:30]
	if _, err := s.Strip(media.New("cut.jpg", "image/jpeg", truncated, modTime)); !errors.Is(err, failure.ErrMetadataStrip) {
		t.Fatalf("expected MetadataStripError for truncated JPEG, got %v", err)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
