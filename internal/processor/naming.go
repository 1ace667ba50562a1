package processor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"batchconv/internal/settings"
)

// renameSeq numbers renamed outputs across every batch in the process, so a
// renamed file never reuses a name from an earlier run.
var renameSeq atomic.Uint64

// namer assigns output names within one batch. It is owned by the collector
// goroutine and is not safe for concurrent use.
type namer struct {
	used map[string]struct{}
}

func newNamer() *namer {
	return &namer{used: make(map[string]struct{})}
}

func (n *namer) assign(source string, format settings.Format, rename bool) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "image"
	}
	if rename {
		base = fmt.Sprintf("%s_converted%d", base, renameSeq.Add(1))
	}

	ext := format.Extension()
	name := base + "." + ext
	for i := 1; n.taken(name); i++ {
		name = fmt.Sprintf("%s_%d.%s", base, i, ext)
	}
	n.used[strings.ToLower(name)] = struct{}{}
	return name
}

// taken compares case-insensitively so names stay distinct on
// case-insensitive filesystems and inside archives.
func (n *namer) taken(name string) bool {
	_, ok := n.used[strings.ToLower(name)]
	return ok
}
