package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Finding is one detected secret span.
type Finding struct {
	RuleID    string
	LineStart int
	LineEnd   int
}

func (f Finding) key() string {
	return fmt.Sprintf("%d:%d", f.LineStart, f.LineEnd)
}

// DefaultSubprocessTimeout bounds the external scanner invocation, per
// spec.md §5's default subprocess timeout.
const DefaultSubprocessTimeout = 30 * time.Second

// Engine detects secrets in file content.
type Engine interface {
	Detect(ctx context.Context, path, content string) ([]Finding, error)
}

// BuiltinEngine matches content against a fixed regex ruleset.
type BuiltinEngine struct {
	rules []Rule
}

// NewBuiltinEngine returns an Engine backed by rules. A nil/empty rules
// slice falls back to LoadDefaultRules.
func NewBuiltinEngine(rules []Rule) (*BuiltinEngine, error) {
	if len(rules) == 0 {
		loaded, err := LoadDefaultRules()
		if err != nil {
			return nil, err
		}
		rules = loaded
	}
	return &BuiltinEngine{rules: rules}, nil
}

func (e *BuiltinEngine) Detect(_ context.Context, _ string, content string) ([]Finding, error) {
	var findings []Finding
	lines := strings.Split(content, "\n")
	for _, rule := range e.rules {
		for i, line := range lines {
			if rule.Pattern.MatchString(line) {
				findings = append(findings, Finding{RuleID: rule.ID, LineStart: i + 1, LineEnd: i + 1})
			}
		}
	}
	return findings, nil
}

// ExternalEngine shells out to a gitleaks-compatible binary, feeding file
// content on stdin and parsing its JSON findings on stdout.
type ExternalEngine struct {
	binary  string
	timeout time.Duration
}

// NewExternalEngine returns an Engine invoking binary (default "gitleaks").
func NewExternalEngine(binary string) *ExternalEngine {
	if binary == "" {
		binary = "gitleaks"
	}
	return &ExternalEngine{binary: binary, timeout: DefaultSubprocessTimeout}
}

// Resolvable reports whether the configured binary is on $PATH.
func (e *ExternalEngine) Resolvable() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

type gitleaksFinding struct {
	RuleID    string `json:"RuleID"`
	StartLine int    `json:"StartLine"`
	EndLine   int    `json:"EndLine"`
}

func (e *ExternalEngine) Detect(ctx context.Context, path, content string) ([]Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, "detect",
		"--no-git", "--pipe", "--report-format", "json", "--report-path", "/dev/stdout")
	cmd.Stdin = strings.NewReader(content)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// gitleaks exits non-zero when it finds leaks; that is not a failure of
	// the invocation, so only a process-launch error is treated as fatal.
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("running %s on %s: %w", e.binary, path, err)
		}
	}

	if stdout.Len() == 0 {
		return nil, nil
	}

	var raw []gitleaksFinding
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("parsing %s output for %s: %w", e.binary, path, err)
	}

	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, Finding{RuleID: f.RuleID, LineStart: f.StartLine, LineEnd: f.EndLine})
	}
	return findings, nil
}

// unionEngine runs two engines and merges findings by (lineStart, lineEnd).
type unionEngine struct {
	a, b Engine
}

func (u unionEngine) Detect(ctx context.Context, path, content string) ([]Finding, error) {
	fromA, err := u.a.Detect(ctx, path, content)
	if err != nil {
		return nil, err
	}
	fromB, err := u.b.Detect(ctx, path, content)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(fromA)+len(fromB))
	var merged []Finding
	for _, f := range append(fromA, fromB...) {
		if seen[f.key()] {
			continue
		}
		seen[f.key()] = true
		merged = append(merged, f)
	}
	return merged, nil
}

// NewEngine builds an Engine for the named mode ("builtin", "external",
// "both", "auto"), given a configured external binary name and optional
// builtin rule overrides. "auto" prefers external if it resolves on $PATH,
// falling back to builtin otherwise; any external failure at detect time
// also degrades to builtin rather than aborting the stage. "wasm" runs
// wasmModulePath under a sandboxed wazero runtime (WASMEngine) instead of a
// host subprocess, falling back to builtin on any detect-time error the
// same way "external" does.
func NewEngine(mode, externalBinary, wasmModulePath string, rules []Rule) (Engine, error) {
	builtin, err := NewBuiltinEngine(rules)
	if err != nil {
		return nil, err
	}
	external := NewExternalEngine(externalBinary)

	switch mode {
	case "builtin", "":
		return builtin, nil
	case "external":
		return &fallbackEngine{primary: external, fallback: builtin}, nil
	case "both":
		return unionEngine{a: builtin, b: external}, nil
	case "auto":
		if external.Resolvable() {
			return &fallbackEngine{primary: external, fallback: builtin}, nil
		}
		return builtin, nil
	case "wasm":
		return &fallbackEngine{primary: NewWASMEngine(wasmModulePath), fallback: builtin}, nil
	default:
		return nil, fmt.Errorf("unknown secrets engine %q", mode)
	}
}

// fallbackEngine tries primary and falls back to fallback on any error,
// so a missing/misbehaving external scanner never aborts the run.
type fallbackEngine struct {
	primary, fallback Engine
}

func (f *fallbackEngine) Detect(ctx context.Context, path, content string) ([]Finding, error) {
	findings, err := f.primary.Detect(ctx, path, content)
	if err != nil {
		return f.fallback.Detect(ctx, path, content)
	}
	return findings, nil
}
