// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes resnum tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/resnum/internal/models"
	"github.com/starford/resnum/internal/spanservice"
)

// OutputFormatURI is the resource holding OutputFormatContract.
const OutputFormatURI = "resnum://output-format"

// Server wraps the MCP server with resnum tools.
type Server struct {
	mcp *server.MCPServer
	svc *spanservice.Service
}

// New creates a new MCP server with all resnum tools registered.
func New(svc *spanservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"resnum",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("lookup_protein",
		mcp.WithDescription("Return the full residue sequence of a protein by accession."),
		mcp.WithString("accession", mcp.Required(), mcp.Description("Protein accession, e.g. P04637")),
	), s.lookupProtein)

	s.mcp.AddTool(mcp.NewTool("extract_spans",
		mcp.WithDescription("Locate a peptide in its protein and return one numbered, "+
			"pivot-centred span per occurrence of the pivot residue in the peptide."),
		mcp.WithString("accession", mcp.Required(), mcp.Description("Protein accession")),
		mcp.WithString("peptide", mcp.Required(), mcp.Description("Peptide sequence; mask characters such as '*' are stripped")),
		mcp.WithString("pivot", mcp.Description("Pivot residue (single letter). Defaults to the server setting")),
		mcp.WithNumber("flank", mcp.Description("Residues kept on each side of the pivot. Defaults to the server setting")),
	), s.extractSpans)

	s.mcp.AddTool(mcp.NewTool("expand_table",
		mcp.WithDescription("Expand a tab-separated peptide table and store the result. "+
			"Read the output contract first via get_output_contract or the "+OutputFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Tab-separated table with a header row")),
		mcp.WithString("pivot", mcp.Description("Pivot residue override")),
		mcp.WithNumber("flank", mcp.Description("Flank width override")),
		mcp.WithString("id_col", mcp.Description("Accession column override")),
		mcp.WithString("seq_col", mcp.Description("Peptide column override")),
	), s.expandTable)

	s.mcp.AddTool(mcp.NewTool("get_output_contract",
		mcp.WithDescription("Returns the format of tables produced by resnum."),
	), s.getOutputContract)

	s.mcp.AddResource(
		mcp.NewResource(OutputFormatURI, "Output Format Contract",
			mcp.WithResourceDescription("Columns and semantics of the span table resnum writes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOutputFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) lookupProtein(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acc, err := req.RequireString("accession")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Protein(ctx, acc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) extractSpans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acc, err := req.RequireString("accession")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pep, err := req.RequireString("peptide")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Spans(ctx, []models.InputRow{{ID: acc, Peptide: pep}}, overrides(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Spans) == 0 && len(res.Skips) == 1 {
		ev := res.Skips[0]
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", ev.Reason, ev.Detail)), nil
	}
	return jsonResult(res.Spans)
}

func (s *Server) expandTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	o := overrides(req)
	o.IDColumn = req.GetString("id_col", "")
	o.SeqColumn = req.GetString("seq_col", "")

	job, err := s.svc.RunTable(ctx, []byte(content), o)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.TableResult(ctx, job.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getOutputContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OutputFormatContract), nil
}

func (s *Server) readOutputFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      OutputFormatURI,
			MIMEType: "text/markdown",
			Text:     OutputFormatContract,
		},
	}, nil
}

// overrides reads the optional pivot and flank arguments.
func overrides(req mcp.CallToolRequest) spanservice.Overrides {
	o := spanservice.Overrides{Pivot: req.GetString("pivot", "")}
	if _, ok := req.GetArguments()["flank"]; ok {
		n := req.GetInt("flank", 0)
		o.Flank = &n
	}
	return o
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
