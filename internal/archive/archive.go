// Package archive saves conversion results to disk, either as individual
// files or bundled into one zip.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"batchconv/internal/processor"
	"batchconv/pkg/imgutil"
)

// Entry is one file to save.
type Entry struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

// Entries collects the successful outcomes, in order.
func Entries(outcomes []processor.Outcome) []Entry {
	entries := []Entry{}
	for _, o := range outcomes {
		if !o.Succeeded() {
			continue
		}
		entries = append(entries, Entry{Name: o.Name, Data: o.Data, ModTime: o.Source.ModTime})
	}
	return entries
}

// WriteFiles writes every entry into dir, creating it if needed, and returns
// the written paths.
func WriteFiles(dir string, entries []Entry) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		name, err := cleanName(e.Name)
		if err != nil {
			return paths, err
		}
		dest := filepath.Join(dir, name)
		if err := WriteFile(dest, e.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
		if !e.ModTime.IsZero() {
			_ = os.Chtimes(dest, e.ModTime, e.ModTime)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// AvoidExisting renames entries whose names are already used in dir, with
// the same _1, _2 suffixes batch naming uses. Names compare
// case-insensitively.
func AvoidExisting(dir string, entries []Entry) []Entry {
	taken := make(map[string]struct{})
	if existing, err := os.ReadDir(dir); err == nil {
		for _, e := range existing {
			taken[strings.ToLower(e.Name())] = struct{}{}
		}
	}
	isTaken := func(name string) bool {
		_, ok := taken[strings.ToLower(name)]
		return ok
	}

	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Name = FreeName(e.Name, isTaken)
		taken[strings.ToLower(e.Name)] = struct{}{}
		out[i] = e
	}
	return out
}

// FreeName returns name, or the first of name_1, name_2 ... (suffix before the
// extension) that taken rejects.
func FreeName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}

// WriteFile replaces path with data through a temporary file in the same
// directory, so readers never see a partial file.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "batchconv-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return replaceFile(tmp.Name(), path)
}

// WriteZip bundles entries into a zip on w. Formats that are already
// compressed are stored; PNG is deflated.
func WriteZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		name, err := cleanName(e.Name)
		if err != nil {
			return err
		}
		header := &zip.FileHeader{
			Name:     name,
			Method:   zipMethod(e.Data),
			Modified: e.ModTime,
		}
		if header.Modified.IsZero() {
			header.Modified = time.Now()
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("zip %s: %w", name, err)
		}
	}
	return zw.Close()
}

// CreateZip writes the archive to path atomically.
func CreateZip(path string, entries []Entry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "batchconv-*.zip.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteZip(tmp, entries); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return replaceFile(tmp.Name(), path)
}

func zipMethod(data []byte) uint16 {
	if imgutil.Detect(data) == imgutil.KindPNG {
		return zip.Deflate
	}
	return zip.Store
}

func cleanName(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	return base, nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
