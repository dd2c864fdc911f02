package stages

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/secrets"
)

// SecretsGuard scans file content for secrets, redacting or excluding as
// configured, per spec.md §4.4/§4.4.1. A hard-deny filename match always
// excludes the file, bypassing AlwaysInclude and RedactionMode.
type SecretsGuard struct {
	engine secrets.Engine
}

// NewSecretsGuard returns a SecretsGuard backed by engine.
func NewSecretsGuard(engine secrets.Engine) *SecretsGuard {
	return &SecretsGuard{engine: engine}
}

func (g *SecretsGuard) Name() string { return "secrets-guard" }

func (g *SecretsGuard) ShouldApply(v *pipeline.Value) bool {
	return v.Options.SecretsEngine != "" && v.Options.SecretsEngine != "off"
}

func (g *SecretsGuard) Process(ctx context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	concurrency := v.Options.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]*pipeline.FileDescriptor, len(v.Files))
	findingsPerFile := make([][]pipeline.SecretFinding, len(v.Files))

	g2, gctx := errgroup.WithContext(ctx)
	g2.SetLimit(concurrency)

	for i, fd := range v.Files {
		i, fd := i, fd
		g2.Go(func() error {
			// Hard-deny is evaluated before the allowlist: a file matching
			// both is still excluded, honoring §8's absolute invariant that
			// hard-deny files are never present in output.
			if secrets.IsHardDeny(fd.Path) {
				fd.SecretsExcluded = true
				fd.ExcludedReason = "secrets-hard-deny"
				findingsPerFile[i] = []pipeline.SecretFinding{{File: fd.Path, Rule: "hard-deny"}}
				results[i] = nil
				return nil
			}

			if secrets.IsAllowed(fd.Path, v.Options.SecretsAllow) {
				results[i] = fd
				return nil
			}

			if v.Options.MaxSecretBytes > 0 && int64(len(fd.Content)) > v.Options.MaxSecretBytes {
				results[i] = fd
				return nil
			}

			found, err := g.engine.Detect(gctx, fd.Path, fd.Content)
			if err != nil {
				// Detection failures never abort the stage; the file passes
				// through unscanned (spec.md §7, Secrets error kind).
				results[i] = fd
				return nil
			}
			if len(found) == 0 {
				results[i] = fd
				return nil
			}

			local := make([]secrets.Finding, len(found))
			copy(local, found)
			for _, f := range found {
				findingsPerFile[i] = append(findingsPerFile[i], pipeline.SecretFinding{
					File: fd.Path,
					Line: f.LineStart,
					Rule: f.RuleID,
				})
			}

			mode := secrets.RedactionMode(v.Options.RedactionMode)
			if mode == secrets.ModeOff {
				fd.SecretsExcluded = true
				fd.ExcludedReason = "secrets-detected"
				results[i] = nil
				return nil
			}

			out := *fd
			out.Content = secrets.Redact(fd.Content, local, mode)
			out.SecretsRedacted = true
			out.SecretsCount = len(local)
			results[i] = &out
			return nil
		})
	}

	if err := g2.Wait(); err != nil {
		return v, fmt.Errorf("secrets guard: %w", err)
	}

	var kept []*pipeline.FileDescriptor
	anyFindings := false
	for i, fd := range results {
		v.Stats.SecretsGuard.Findings = append(v.Stats.SecretsGuard.Findings, findingsPerFile[i]...)
		if len(findingsPerFile[i]) > 0 {
			anyFindings = true
		}
		if fd == nil {
			v.Stats.SecretsGuard.FilesExcluded++
			continue
		}
		if fd.SecretsRedacted {
			v.Stats.SecretsGuard.FilesRedacted++
		}
		kept = append(kept, fd)
	}
	v.Files = kept

	if anyFindings && v.Options.FailOnSecrets {
		return v, pipeline.NewRedactionError("secrets detected with --fail-on-secrets set")
	}

	return v, nil
}
