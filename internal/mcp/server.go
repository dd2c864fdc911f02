// Package mcp exposes copytree's generate pipeline over the Model Context
// Protocol, per spec.md §1.1 ("downstream consumers such as ... chat-based
// assistants"). It is a thin adapter: a tool call builds a FlagValues, runs
// the real engine.Run pipeline, and returns the rendered document as the
// tool's text content. It never reaches into pipeline internals directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/copytree/copytree/internal/buildinfo"
	"github.com/copytree/copytree/internal/config"
	"github.com/copytree/copytree/internal/engine"
)

// Server wraps an mcp.Server configured with copytree's tools.
type Server struct {
	server *mcp.Server
}

// NewServer constructs an MCP server exposing the generate_context tool.
func NewServer() *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "copytree-mcp-server",
			Version: buildinfo.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until ctx is cancelled or the
// transport closes. Per the MCP stdio convention, nothing but protocol
// frames may reach stdout; copytree's own generate output is returned as
// tool content, never printed directly.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// generateContextParams is the generate_context tool's input.
type generateContextParams struct {
	Dir             string   `json:"dir,omitempty"`
	Format          string   `json:"format,omitempty"`
	Filter          []string `json:"filter,omitempty"`
	Include         []string `json:"include,omitempty"`
	Exclude         []string `json:"exclude,omitempty"`
	Modified        bool     `json:"modified,omitempty"`
	Changed         string   `json:"changed,omitempty"`
	Profile         string   `json:"profile,omitempty"`
	CharLimit       int      `json:"char_limit,omitempty"`
	WithLineNumbers bool     `json:"with_line_numbers,omitempty"`
	Target          string   `json:"target,omitempty"`
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name: "generate_context",
		Description: "Flatten a directory tree into a single LLM-optimized context " +
			"document (markdown, xml, json, or tree). Runs copytree's full discovery, " +
			"filtering, secret-redaction, and rendering pipeline against dir.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"dir": {
					Type:        "string",
					Description: "Directory to scan. Defaults to the current working directory.",
				},
				"format": {
					Type:        "string",
					Description: "Output format, one of: markdown, xml, json, tree.",
				},
				"filter": {
					Type:        "array",
					Description: "File extensions to include, e.g. [\"go\", \"md\"].",
					Items:       &jsonschema.Schema{Type: "string"},
				},
				"include": {
					Type:        "array",
					Description: "Glob patterns a file's path must match to be included.",
					Items:       &jsonschema.Schema{Type: "string"},
				},
				"exclude": {
					Type:        "array",
					Description: "Glob patterns that exclude a matching file.",
					Items:       &jsonschema.Schema{Type: "string"},
				},
				"modified": {
					Type:        "boolean",
					Description: "Only include files with uncommitted git changes.",
				},
				"changed": {
					Type:        "string",
					Description: "Only include files changed since this git ref.",
				},
				"profile": {
					Type:        "string",
					Description: "Named profile to load from the copytree.toml configuration.",
				},
				"char_limit": {
					Type:        "integer",
					Description: "Truncate the rendered document to this many characters.",
				},
				"with_line_numbers": {
					Type:        "boolean",
					Description: "Prefix each rendered line with its line number.",
				},
				"target": {
					Type:        "string",
					Description: "LLM target to optimize output for, one of: claude, chatgpt, generic.",
				},
			},
		},
	}, s.handleGenerateContext)
}

func (s *Server) handleGenerateContext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params generateContextParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
	}

	// BindFlags populates a fresh FlagValues with the CLI's own defaults
	// (same ones `copytree generate` gets); a scratch *cobra.Command just
	// hosts the pflag bindings, it is never executed or parsed.
	scratch := &cobra.Command{}
	fv := config.BindFlags(scratch)
	fv.Dir = params.Dir
	if fv.Dir == "" {
		fv.Dir = "."
	}
	if params.Format != "" {
		fv.Format = params.Format
	}
	fv.Filters = params.Filter
	fv.Includes = params.Include
	fv.Excludes = params.Exclude
	fv.Modified = params.Modified
	fv.Changed = params.Changed
	fv.Profile = params.Profile
	fv.CharLimit = params.CharLimit
	fv.LineNumbers = params.WithLineNumbers
	if params.Target != "" {
		fv.Target = params.Target
	}

	if err := config.ValidateFlags(fv, scratch); err != nil {
		return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
	}

	out, err := os.CreateTemp("", "copytree-mcp-*.out")
	if err != nil {
		return errorResult(fmt.Errorf("allocating output file: %w", err)), nil
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)
	fv.Output = outPath

	if err := engine.Run(ctx, fv); err != nil {
		return errorResult(fmt.Errorf("generate failed: %w", err)), nil
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		return errorResult(fmt.Errorf("reading generated output: %w", err)), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
