// Package transform implements the transformer registry and worker-pool
// stage that converts raw FileDescriptor content into LLM-ready text:
// syntax-aware wrapping, base64 encoding of binaries, line numbering, and a
// pluggable seam for AI-backed transformers such as image captioning.
package transform

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/copytree/copytree/internal/pipeline"
)

// ContentType is a coarse content classification used by Traits to validate
// a transformer chain.
type ContentType string

const (
	ContentText   ContentType = "text"
	ContentBinary ContentType = "binary"
	ContentImage  ContentType = "image"
	ContentAny    ContentType = "any"
)

// Requirements describes external resources a transformer needs to run, so
// ValidatePlan can flag a misconfigured chain before the stage starts.
type Requirements struct {
	// Network is true if the transformer calls out to a remote service.
	Network bool
	// Binary names an external executable the transformer shells out to,
	// empty if none.
	Binary string
}

// Traits describes a transformer's behavior for plan validation and
// scheduling, per spec.md §4.3.
type Traits struct {
	InputTypes     []ContentType
	OutputTypes    []ContentType
	Idempotent     bool
	OrderSensitive bool
	Heavy          bool
	Stateful       bool
	Dependencies   []string
	ConflictsWith  []string
	Requirements   Requirements
}

// Transformer converts one file's content. Implementations must not mutate
// fd in place; return a copy (or the same pointer with copied Content) so
// the stage can track before/after state for caching.
type Transformer interface {
	Name() string
	Traits() Traits
	Transform(ctx context.Context, fd *pipeline.FileDescriptor, opts map[string]any) (*pipeline.FileDescriptor, error)
}

// BatchTransformer is implemented by transformers that accumulate state
// across files and need a final pass once the per-file loop completes
// (e.g. building a cross-file index).
type BatchTransformer interface {
	Transformer
	Flush(ctx context.Context) ([]*pipeline.FileDescriptor, error)
}

// Registry resolves which Transformer applies to a given file, using the
// priority chain from spec.md §4.3: extension match, then MIME sniff, then
// filename regex, then the default (plain text passthrough) loader.
type Registry struct {
	byExtension map[string]Transformer
	byRegex     []regexRule
	byMIME      map[string]Transformer
	defaultT    Transformer
}

type regexRule struct {
	pattern *regexp.Regexp
	t       Transformer
}

// NewRegistry returns an empty Registry with def as the fallback transformer
// for files matching nothing more specific.
func NewRegistry(def Transformer) *Registry {
	return &Registry{
		byExtension: make(map[string]Transformer),
		byMIME:      make(map[string]Transformer),
		defaultT:    def,
	}
}

// RegisterExtension binds ext (without leading dot, case-insensitive) to t.
func (r *Registry) RegisterExtension(ext string, t Transformer) {
	r.byExtension[strings.ToLower(strings.TrimPrefix(ext, "."))] = t
}

// RegisterMIME binds a MIME type prefix (e.g. "image/") to t.
func (r *Registry) RegisterMIME(mimePrefix string, t Transformer) {
	r.byMIME[mimePrefix] = t
}

// RegisterPattern binds a filename regex to t. Patterns are tried in
// registration order after extension and MIME lookups fail.
func (r *Registry) RegisterPattern(pattern string, t Transformer) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compiling transformer pattern %q: %w", pattern, err)
	}
	r.byRegex = append(r.byRegex, regexRule{pattern: re, t: t})
	return nil
}

// Resolve returns the Transformer that should process fd.
func (r *Registry) Resolve(fd *pipeline.FileDescriptor, mimeType string) Transformer {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fd.Path), "."))
	if t, ok := r.byExtension[ext]; ok {
		return t
	}
	if mimeType != "" {
		for prefix, t := range r.byMIME {
			if strings.HasPrefix(mimeType, prefix) {
				return t
			}
		}
	}
	base := filepath.Base(fd.Path)
	for _, rule := range r.byRegex {
		if rule.pattern.MatchString(base) {
			return rule.t
		}
	}
	return r.defaultT
}

// PlanValidation reports problems found while validating an ordered
// transformer chain, per spec.md §4.3.
type PlanValidation struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the plan has no fatal errors (warnings are tolerated).
func (v PlanValidation) OK() bool {
	return len(v.Errors) == 0
}

// ValidatePlan checks an ordered transformer chain for type incompatibility,
// declared conflicts, missing dependencies, and missing external resources.
func ValidatePlan(chain []Transformer) PlanValidation {
	var result PlanValidation

	present := make(map[string]bool, len(chain))
	for _, t := range chain {
		present[t.Name()] = true
	}

	for i, t := range chain {
		traits := t.Traits()

		for _, dep := range traits.Dependencies {
			if !present[dep] {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"%s depends on %s, which is not in the chain", t.Name(), dep))
			}
		}
		for _, conflict := range traits.ConflictsWith {
			if present[conflict] {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"%s conflicts with %s", t.Name(), conflict))
			}
		}
		if traits.Requirements.Binary != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s requires external binary %q; unresolved at plan time",
				t.Name(), traits.Requirements.Binary))
		}

		if i > 0 {
			prev := chain[i-1].Traits()
			if !typesCompatible(prev.OutputTypes, traits.InputTypes) {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"%s output types incompatible with %s input types", chain[i-1].Name(), t.Name()))
			}
		}
	}

	return result
}

func typesCompatible(out, in []ContentType) bool {
	if len(out) == 0 || len(in) == 0 {
		return true
	}
	for _, o := range out {
		if o == ContentAny {
			return true
		}
		for _, i := range in {
			if i == ContentAny || i == o {
				return true
			}
		}
	}
	return false
}

// OptimizePlan reorders chain so order-insensitive, non-heavy transformers
// run before heavy ones, preserving relative order within each group and
// never reordering across an OrderSensitive boundary.
func OptimizePlan(chain []Transformer) []Transformer {
	out := make([]Transformer, len(chain))
	copy(out, chain)

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Traits(), out[j].Traits()
		if ti.OrderSensitive || tj.OrderSensitive {
			return false
		}
		if ti.Heavy != tj.Heavy {
			return !ti.Heavy
		}
		return false
	})

	return out
}
