// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the scan tree to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/service"
)

const recordFormatURI = "orrery://record-format"

// Server wraps the MCP server with Orrery tools.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates a new MCP server with all Orrery tools registered.
func New(svc *service.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Orrery",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_systems",
		mcp.WithDescription("List every star system that has at least one scanned body."),
	), s.listSystems)

	s.mcp.AddTool(mcp.NewTool("get_system_tree",
		mcp.WithDescription("Return the full body tree of one system, ordered by designation."),
		mcp.WithString("system", mcp.Required(), mcp.Description("System address or name")),
	), s.getSystemTree)

	s.mcp.AddTool(mcp.NewTool("find_body",
		mcp.WithDescription("Look up one body in a system by its full name or its custom name."),
		mcp.WithString("system", mcp.Required(), mcp.Description("System address or name")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Full body name, e.g. \"Sol 3 a\"")),
		mcp.WithBoolean("custom", mcp.Description("Match against custom names instead of full names")),
	), s.findBody)

	s.mcp.AddTool(mcp.NewTool("system_stats",
		mcp.WithDescription("Count scanned stars, bodies and mapped bodies, and estimate the system value."),
		mcp.WithString("system", mcp.Required(), mcp.Description("System address or name")),
		mcp.WithBoolean("include_web", mcp.Description("Also count bodies imported from EDSM or Spansh")),
	), s.systemStats)

	s.mcp.AddTool(mcp.NewTool("barycentre_tree",
		mcp.WithDescription("Return the system tree regrouped under the barycentres bodies orbit."),
		mcp.WithString("system", mcp.Required(), mcp.Description("System address or name")),
	), s.barycentreTree)

	s.mcp.AddTool(mcp.NewTool("ingest_event",
		mcp.WithDescription("Store one journal record and apply it to the scan tree. "+
			"Read the orrery://record-format resource or call get_record_contract first."),
		mcp.WithString("record", mcp.Required(), mcp.Description("One journal record as a JSON object")),
	), s.ingestEvent)

	s.mcp.AddTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the journal record format accepted by ingest_event."),
	), s.getRecordContract)

	s.mcp.AddResource(
		mcp.NewResource(recordFormatURI, "Record Format",
			mcp.WithResourceDescription("Journal records understood by the scan tree."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error()), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) listSystems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Systems(ctx))
}

func (s *Server) getSystemTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("system")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.System(ctx, key)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(v)
}

func (s *Server) findBody(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("system")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.FindBody(ctx, key, name, req.GetBool("custom", false))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(v)
}

func (s *Server) systemStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("system")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.svc.Stats(ctx, key, req.GetBool("include_web", false))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(st)
}

func (s *Server) barycentreTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("system")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	roots, err := s.svc.Barycentres(ctx, key)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(roots)
}

func (s *Server) ingestEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	record, err := req.RequireString("record")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Ingest(ctx, []byte(record))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) getRecordContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
