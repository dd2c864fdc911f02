package stages

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/copytree/copytree/internal/pipeline"
)

// Dedup drops files whose post-transform content hash has already been
// seen, keeping the first occurrence in walk order. Hashing after transform
// (rather than on raw discovered content) means redacted or base64-encoded
// output is what actually gets deduplicated -- matching what the formatter
// emits (spec.md §9's resolved Open Question).
type Dedup struct{}

func (Dedup) Name() string { return "dedup" }

func (Dedup) ShouldApply(v *pipeline.Value) bool { return len(v.Files) > 1 }

func (Dedup) Process(_ context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	algo := v.Options.DedupAlgorithm
	if algo == "" {
		algo = "xxh3"
	}

	seen := make(map[uint64]bool, len(v.Files))
	var kept []*pipeline.FileDescriptor
	dropped := 0

	for _, fd := range v.Files {
		hash := contentHash(fd.Content, algo)
		fd.ContentHash = hash

		if fd.AlwaysInclude {
			kept = append(kept, fd)
			continue
		}

		if seen[hash] {
			dropped++
			continue
		}
		seen[hash] = true
		kept = append(kept, fd)
	}

	v.Files = kept
	v.Stats.DedupDropped += dropped
	return v, nil
}

func contentHash(content, algo string) uint64 {
	if algo == "sha256" {
		sum := sha256.Sum256([]byte(content))
		return binary.BigEndian.Uint64(sum[:8])
	}
	return xxh3.HashString(content)
}
