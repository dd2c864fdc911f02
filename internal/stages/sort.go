package stages

import (
	"context"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/relevance"
)

// Sort orders the file list by one of six keys, stably and
// case-insensitively, with natural (numeric-run-aware) collation --
// generalizing relevance.SortByRelevance's tier-then-path comparator past a
// single fixed key.
type Sort struct{}

func (Sort) Name() string { return "sort" }

func (Sort) ShouldApply(v *pipeline.Value) bool { return v.Options.SortBy != "" }

func (Sort) Process(_ context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	key := v.Options.SortBy
	if key == "relevance" {
		sorted := relevance.SortByRelevance(v.Files)
		if v.Options.SortDescending {
			slices.Reverse(sorted)
		}
		v.Files = sorted
		return v, nil
	}

	primary := comparatorFor(key)
	out := make([]*pipeline.FileDescriptor, len(v.Files))
	copy(out, v.Files)

	// Path always breaks ties in ascending order, regardless of
	// SortDescending -- only the primary key's direction flips, per §8's
	// "path as tie-breaker" guarantee. Negating the whole comparator would
	// reverse the tie-breaker along with the primary key, which is why the
	// tie-break is applied after, never inside, the negation.
	slices.SortStableFunc(out, func(a, b *pipeline.FileDescriptor) int {
		n := primary(a, b)
		if v.Options.SortDescending {
			n = -n
		}
		if n != 0 {
			return n
		}
		return naturalCompare(a.Path, b.Path)
	})

	v.Files = out
	return v, nil
}

func comparatorFor(key string) func(a, b *pipeline.FileDescriptor) int {
	switch key {
	case "size":
		return func(a, b *pipeline.FileDescriptor) int { return cmpInt64(a.Size, b.Size) }
	case "modified":
		return func(a, b *pipeline.FileDescriptor) int { return a.ModTime.Compare(b.ModTime) }
	case "name":
		return func(a, b *pipeline.FileDescriptor) int {
			return naturalCompare(filepath.Base(a.Path), filepath.Base(b.Path))
		}
	case "extension":
		return func(a, b *pipeline.FileDescriptor) int {
			return naturalCompare(filepath.Ext(a.Path), filepath.Ext(b.Path))
		}
	case "depth":
		return func(a, b *pipeline.FileDescriptor) int {
			da, db := strings.Count(a.Path, "/"), strings.Count(b.Path, "/")
			return cmpInt64(int64(da), int64(db))
		}
	default: // "path"
		return func(a, b *pipeline.FileDescriptor) int { return naturalCompare(a.Path, b.Path) }
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// naturalCompare compares strings case-insensitively, treating contiguous
// digit runs as numbers so "file2" sorts before "file10".
func naturalCompare(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ca, cb := a[ai], b[bi]
		if isDigit(ca) && isDigit(cb) {
			na, nexta := scanNumber(a, ai)
			nb, nextb := scanNumber(b, bi)
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			ai, bi = nexta, nextb
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		ai++
		bi++
	}
	return cmpInt64(int64(len(a)-ai), int64(len(b)-bi))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func scanNumber(s string, start int) (int64, int) {
	end := start
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	n, _ := strconv.ParseInt(s[start:end], 10, 64)
	return n, end
}
