// Package mcpserver exposes the tutorial catalog, chapters and search as
// MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tutorview/internal/apperr"
	"github.com/starford/tutorview/internal/chapterservice"
	"github.com/starford/tutorview/internal/search"
)

// LayoutURI is the resource describing the expected content layout.
const LayoutURI = "tutorview://layout"

// Server wraps the MCP server with tutorview tools.
type Server struct {
	mcp *server.MCPServer
	svc *chapterservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *chapterservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tutorview",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_chapters",
		mcp.WithDescription("List the discovered tutorial groups and their chapters in reading order."),
		mcp.WithString("group", mcp.Description("Optional group directory to restrict the listing")),
	), s.listChapters)

	s.mcp.AddTool(mcp.NewTool("read_chapter",
		mcp.WithDescription("Read one chapter by catalog id (e.g. groupA-3) or by resource path (e.g. output/groupA/03_bar_.md)."),
		mcp.WithString("id", mcp.Description("Chapter id from list_chapters")),
		mcp.WithString("path", mcp.Description("Resource path relative to the content root")),
		mcp.WithString("format", mcp.Description("markdown (default) or html")),
	), s.readChapter)

	s.mcp.AddTool(mcp.NewTool("search_chapters",
		mcp.WithDescription("Case-insensitive full-text search across every chapter, with context snippets."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	), s.searchChapters)

	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Describe how tutorial content must be laid out to be discovered."),
	), s.getLayout)

	s.mcp.AddResource(
		mcp.NewResource(LayoutURI, "Content Layout",
			mcp.WithResourceDescription("Directory and naming conventions the tutorial browser discovers."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
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

func (s *Server) listChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := s.svc.Catalog(ctx)
	if err != nil {
		return toolError(err), nil
	}
	group := strings.TrimSpace(req.GetString("group", ""))

	var b strings.Builder
	for _, g := range cat.Groups() {
		if group != "" && g.Dir != group {
			continue
		}
		fmt.Fprintf(&b, "## %s (%s)\n", g.Name, g.Dir)
		for _, ch := range g.Chapters {
			fmt.Fprintf(&b, "- %s: %s [%s]\n", ch.ID, ch.Title, ch.Path)
		}
	}
	if b.Len() == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no such group: %s", group)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readChapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := strings.TrimSpace(req.GetString("id", ""))
	if ref == "" {
		ref = strings.TrimSpace(req.GetString("path", ""))
	}
	if ref == "" {
		return mcp.NewToolResultError("id or path is required"), nil
	}

	detail, err := s.svc.ReadChapter(ctx, ref)
	if err != nil {
		return toolError(err), nil
	}
	if strings.EqualFold(req.GetString("format", ""), "html") {
		return mcp.NewToolResultText(detail.HTML), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

// searchHit is the JSON shape of one search_chapters match.
type searchHit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
	Match   string `json:"match"`
}

func (s *Server) searchChapters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be blank"), nil
	}
	results, err := s.svc.Search(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No results found for %q", query)), nil
	}

	hits := make([]searchHit, 0, search.Count(results))
	for _, r := range results {
		for _, m := range r.Matches {
			hits = append(hits, searchHit{
				ID:      r.Chapter.ID,
				Title:   r.Chapter.Title,
				Path:    r.Chapter.Path,
				Snippet: m.Context,
				Match:   m.Matched(),
			})
		}
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutContract), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNoTutorials):
		return mcp.NewToolResultError("no tutorials found")
	case errors.Is(err, apperr.ErrUnknownChapter), errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
