package cmd

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"batchconv/internal/media"
	"batchconv/pkg/imgutil"
)

type inputPath struct {
	Path    string
	RelPath string
}

// collectInputs expands args into files. Files named directly are always
// kept so that unsupported ones are reported; files found by walking a
// directory are kept only when they sniff as an image. Anything under skip
// is ignored.
func collectInputs(args []string, skip string) ([]inputPath, error) {
	var skipAbs string
	if skip != "" {
		if abs, err := filepath.Abs(skip); err == nil {
			skipAbs = filepath.Clean(abs)
		}
	}

	var inputs []inputPath
	for _, arg := range args {
		absRoot, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			inputs = append(inputs, inputPath{Path: absRoot, RelPath: filepath.Base(absRoot)})
			continue
		}

		err = fs.WalkDir(os.DirFS(absRoot), ".", func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			full := filepath.Join(absRoot, path)
			if d.IsDir() {
				if skipAbs != "" && skipAbs != absRoot && isWithin(full, skipAbs) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			kind, err := imgutil.SniffFile(full)
			if err != nil || kind == imgutil.KindUnknown {
				logger.Debug("skipping non-image", zap.String("path", full))
				return nil
			}
			inputs = append(inputs, inputPath{Path: full, RelPath: path})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

// loadInputs reads every input into memory. A file that cannot be read is
// logged and skipped.
func loadInputs(inputs []inputPath) []media.SourceFile {
	files := make([]media.SourceFile, 0, len(inputs))
	for _, in := range inputs {
		f, err := media.ReadFile(in.Path)
		if err != nil {
			logger.Warn("cannot read input", zap.String("path", in.Path), zap.Error(err))
			continue
		}
		files = append(files, f)
	}
	return files
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
