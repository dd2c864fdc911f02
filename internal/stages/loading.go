package stages

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/copytree/copytree/internal/discovery"
	"github.com/copytree/copytree/internal/pipeline"
)

// BinarySampleBytes bounds how much of a binary file FileLoading samples
// when applying the non-printable-ratio check.
const BinarySampleBytes = 8192

// NonPrintableThreshold is the default ratio above which sampled content is
// treated as binary even without a NUL byte.
const NonPrintableThreshold = 0.3

// FileLoading applies one of five binary policies ("convert", "placeholder",
// "skip", "base64", "comment") to files discovery has already tagged
// IsBinary, per spec.md §4.5. It reuses discovery.IsBinary/NonPrintableRatio
// as its sniffing primitives and discovery.Walker's errgroup-bounded
// parallel-loading pattern.
type FileLoading struct{}

func (FileLoading) Name() string { return "file-loading" }

func (FileLoading) ShouldApply(v *pipeline.Value) bool {
	for _, fd := range v.Files {
		if fd.IsBinary {
			return true
		}
	}
	return false
}

func (FileLoading) Process(ctx context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	policy := v.Options.BinaryPolicy
	if policy == "" {
		policy = "placeholder"
	}

	concurrency := v.Options.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var kept []*pipeline.FileDescriptor
	dropped := 0

	for _, fd := range v.Files {
		fd := fd
		if !fd.IsBinary {
			kept = append(kept, fd)
			continue
		}

		g.Go(func() error {
			applyBinaryPolicy(fd, policy)

			mu.Lock()
			defer mu.Unlock()
			if fd.ExcludedReason == "binary-skip" {
				dropped++
				return nil
			}
			kept = append(kept, fd)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return v, fmt.Errorf("file loading: %w", err)
	}

	v.Files = kept
	v.Stats.FilesDroppedLimit += dropped
	return v, nil
}

func applyBinaryPolicy(fd *pipeline.FileDescriptor, policy string) {
	switch policy {
	case "skip":
		fd.ExcludedReason = "binary-skip"
	case "base64":
		fd.OriginalLength = len(fd.Content)
		fd.Content = base64.StdEncoding.EncodeToString([]byte(fd.Content))
		fd.Encoding = "base64"
		fd.BinaryCategory = "base64"
	case "comment":
		fd.OriginalLength = len(fd.Content)
		fd.Content = fmt.Sprintf("/* binary file: %s, %d bytes */", fd.Path, fd.Size)
		fd.BinaryCategory = "comment"
	case "convert":
		// "convert" defers to a registered transformer (e.g. image
		// captioning); FileLoading only ensures the raw bytes are kept for
		// that transformer to consume downstream.
		fd.BinaryCategory = "convert"
	default: // "placeholder"
		fd.OriginalLength = len(fd.Content)
		fd.Content = fmt.Sprintf("[binary file omitted: %s, %d bytes]", fd.Path, fd.Size)
		fd.BinaryCategory = "placeholder"
	}
}

// sampleIsBinary re-checks a file sample against discovery's NUL-byte and
// non-printable-ratio signals, for callers wanting a second opinion beyond
// the walker's initial NUL-only sniff.
func sampleIsBinary(path string) (bool, error) {
	sample, err := discovery.SampleFile(path, BinarySampleBytes)
	if err != nil {
		return false, fmt.Errorf("sampling %s: %w", path, err)
	}
	return discovery.NonPrintableRatio(sample) > NonPrintableThreshold, nil
}
