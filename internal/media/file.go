// Package media holds the uploaded source files a batch works on.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"batchconv/pkg/imgutil"
)

// SourceFile is an ingested input image. It is never mutated after creation;
// Data must be treated as read-only by every consumer.
type SourceFile struct {
	// ID is assigned once per ingest. Two files sharing a name and a
	// modification time are still distinct inputs.
	ID      string
	Name    string
	MIME    string
	Size    int64
	ModTime time.Time
	Data    []byte
}

// New builds a SourceFile from an in-memory buffer and a declared media type.
func New(name, mime string, data []byte, modTime time.Time) SourceFile {
	name = filepath.Base(name)
	return SourceFile{
		ID:      uuid.NewString(),
		Name:    name,
		MIME:    normalizeMIME(mime),
		Size:    int64(len(data)),
		ModTime: modTime,
		Data:    data,
	}
}

// WithData returns a copy of f carrying different bytes under the same
// identity, as produced by metadata stripping.
func (f SourceFile) WithData(data []byte) SourceFile {
	f.Data = data
	f.Size = int64(len(data))
	return f
}

// ReadFile loads path and declares its media type from the content.
func ReadFile(path string) (SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceFile{}, err
	}
	if !info.Mode().IsRegular() {
		return SourceFile{}, fmt.Errorf("%s: not a regular file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return SourceFile{}, err
	}

	return New(path, DetectMIME(data), data, info.ModTime()), nil
}

// DetectMIME reports the media type of data, preferring the image sniffer and
// falling back to mimetype for everything else.
func DetectMIME(data []byte) string {
	if kind := imgutil.Detect(data); kind != imgutil.KindUnknown {
		return kind.MIME()
	}
	return normalizeMIME(mimetype.Detect(data).String())
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}
