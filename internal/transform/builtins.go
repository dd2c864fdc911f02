package transform

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/copytree/copytree/internal/pipeline"
)

// PlainTextTransformer is the default loader: it passes content through
// unmodified, only marking Transformed so the stage can tell it ran.
type PlainTextTransformer struct{}

func (PlainTextTransformer) Name() string { return "plaintext" }

func (PlainTextTransformer) Traits() Traits {
	return Traits{
		InputTypes:  []ContentType{ContentText},
		OutputTypes: []ContentType{ContentText},
		Idempotent:  true,
	}
}

func (PlainTextTransformer) Transform(_ context.Context, fd *pipeline.FileDescriptor, _ map[string]any) (*pipeline.FileDescriptor, error) {
	out := *fd
	out.Transformed = true
	return &out, nil
}

// Base64Transformer encodes binary content as base64 text, for inclusion in
// formats that cannot carry raw bytes.
type Base64Transformer struct{}

func (Base64Transformer) Name() string { return "base64" }

func (Base64Transformer) Traits() Traits {
	return Traits{
		InputTypes:  []ContentType{ContentBinary, ContentAny},
		OutputTypes: []ContentType{ContentText},
		Idempotent:  true,
	}
}

func (Base64Transformer) Transform(_ context.Context, fd *pipeline.FileDescriptor, _ map[string]any) (*pipeline.FileDescriptor, error) {
	out := *fd
	out.OriginalLength = len(fd.Content)
	out.Content = base64.StdEncoding.EncodeToString([]byte(fd.Content))
	out.Encoding = "base64"
	out.Transformed = true
	return &out, nil
}

// PlaceholderTransformer replaces binary content with a short descriptive
// marker, used by the "placeholder" binary policy.
type PlaceholderTransformer struct{}

func (PlaceholderTransformer) Name() string { return "placeholder" }

func (PlaceholderTransformer) Traits() Traits {
	return Traits{
		InputTypes:  []ContentType{ContentBinary, ContentAny},
		OutputTypes: []ContentType{ContentText},
		Idempotent:  true,
	}
}

func (PlaceholderTransformer) Transform(_ context.Context, fd *pipeline.FileDescriptor, _ map[string]any) (*pipeline.FileDescriptor, error) {
	out := *fd
	out.OriginalLength = len(fd.Content)
	out.Content = fmt.Sprintf("[binary file omitted: %s, %d bytes]", fd.BinaryCategory, fd.Size)
	out.Transformed = true
	return &out, nil
}

// LineNumberTransformer prefixes each line of content with a 1-based line
// number, mirroring render.PrefixLineNumbers so callers can apply numbering
// before a transformer chain runs (spec.md §4.6's --line-numbers flag, at
// the file level).
type LineNumberTransformer struct{}

func (LineNumberTransformer) Name() string { return "line-number" }

func (LineNumberTransformer) Traits() Traits {
	return Traits{
		InputTypes:     []ContentType{ContentText},
		OutputTypes:    []ContentType{ContentText},
		Idempotent:     false,
		OrderSensitive: true,
	}
}

func (LineNumberTransformer) Transform(_ context.Context, fd *pipeline.FileDescriptor, _ map[string]any) (*pipeline.FileDescriptor, error) {
	lines := strings.Split(fd.Content, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d: %s", i+1, line)
		if i != len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	out := *fd
	out.Content = b.String()
	out.Transformed = true
	return &out, nil
}

// ImageCaptioner is the pluggable seam for a real captioning backend. The
// default implementation (deterministicCaptioner) never leaves the process,
// so the pipeline stays network-free and fully testable; a caller wanting a
// real backend injects its own ImageCaptioner into
// NewImageDescriptionTransformer.
type ImageCaptioner interface {
	Caption(ctx context.Context, fd *pipeline.FileDescriptor) (string, error)
}

type deterministicCaptioner struct{}

func (deterministicCaptioner) Caption(_ context.Context, fd *pipeline.FileDescriptor) (string, error) {
	return fmt.Sprintf("[image: %s, %d bytes, no captioning backend configured]", fd.Path, fd.Size), nil
}

// ImageDescriptionTransformer is the one genuinely Heavy, cacheable
// transformer: captioning an image is explicitly out of scope to implement
// for real (spec.md's non-goal on AI-backed transformers), but the seam
// exists so a caller can wire one in.
type ImageDescriptionTransformer struct {
	captioner ImageCaptioner
}

// NewImageDescriptionTransformer returns a transformer backed by captioner.
// A nil captioner falls back to the deterministic placeholder.
func NewImageDescriptionTransformer(captioner ImageCaptioner) *ImageDescriptionTransformer {
	if captioner == nil {
		captioner = deterministicCaptioner{}
	}
	return &ImageDescriptionTransformer{captioner: captioner}
}

func (t *ImageDescriptionTransformer) Name() string { return "image-description" }

func (t *ImageDescriptionTransformer) Traits() Traits {
	return Traits{
		InputTypes:  []ContentType{ContentImage},
		OutputTypes: []ContentType{ContentText},
		Idempotent:  true,
		Heavy:       true,
	}
}

func (t *ImageDescriptionTransformer) Transform(ctx context.Context, fd *pipeline.FileDescriptor, _ map[string]any) (*pipeline.FileDescriptor, error) {
	caption, err := t.captioner.Caption(ctx, fd)
	if err != nil {
		return nil, fmt.Errorf("captioning %s: %w", fd.Path, err)
	}
	out := *fd
	out.Content = caption
	out.Transformed = true
	return &out, nil
}
