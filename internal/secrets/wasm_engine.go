package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// WASMEngine runs a WASI-compiled scanner module under a sandboxed wazero
// runtime instead of shelling out to a host binary. It is the sandboxed
// alternative to ExternalEngine for the same external-scanner seam
// (spec.md §4.4.1): the module is expected to be a WASI command that reads
// file content from stdin and writes gitleaks-compatible JSON findings to
// stdout, the same wire contract ExternalEngine's subprocess uses.
type WASMEngine struct {
	modulePath string
	timeout    time.Duration
}

// NewWASMEngine returns an Engine that instantiates the WASI module at
// modulePath fresh for every Detect call, giving each scan an isolated
// sandbox with no state carried between files.
func NewWASMEngine(modulePath string) *WASMEngine {
	return &WASMEngine{modulePath: modulePath, timeout: DefaultSubprocessTimeout}
}

// Resolvable reports whether the configured module file exists on disk.
func (e *WASMEngine) Resolvable() bool {
	_, err := os.Stat(e.modulePath)
	return err == nil
}

func (e *WASMEngine) Detect(ctx context.Context, path, content string) ([]Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	wasmBytes, err := os.ReadFile(e.modulePath)
	if err != nil {
		return nil, fmt.Errorf("reading wasm scanner module %s: %w", e.modulePath, err)
	}

	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compiling wasm scanner module: %w", err)
	}

	var stdout bytes.Buffer
	config := wazero.NewModuleConfig().
		WithStdin(strings.NewReader(content)).
		WithStdout(&stdout).
		WithArgs("scan", "--pipe", "--report-format", "json")

	if _, err := runtime.InstantiateModule(ctx, compiled, config); err != nil {
		// A WASI command signals completion via proc_exit, which surfaces
		// here as a *sys.ExitError; only a non-zero exit or a non-exit
		// failure (trap, missing import) is a real invocation error.
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			return nil, fmt.Errorf("running wasm scanner on %s: %w", path, err)
		}
	}

	if stdout.Len() == 0 {
		return nil, nil
	}

	var raw []gitleaksFinding
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("parsing wasm scanner output for %s: %w", path, err)
	}

	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, Finding{RuleID: f.RuleID, LineStart: f.StartLine, LineEnd: f.EndLine})
	}
	return findings, nil
}
