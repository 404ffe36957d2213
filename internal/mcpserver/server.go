// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes gistpub tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gistpub/internal/noteservice"
	"github.com/starford/gistpub/internal/publisher"
)

const formatURI = "gistpub://publish-format"

// Publisher publishes a note by vault path.
type Publisher interface {
	PublishFile(ctx context.Context, path string) (*publisher.Result, error)
}

// Server wraps the MCP server with gistpub tools.
type Server struct {
	mcp       *server.MCPServer
	publisher Publisher
	notes     *noteservice.Service
}

// PublishRequest is the argument of the publish_note tool.
type PublishRequest struct {
	Path string `json:"path"`
}

// New creates a new MCP server with all gistpub tools registered.
func New(pub Publisher, notes *noteservice.Service) *Server {
	s := &Server{publisher: pub, notes: notes}

	s.mcp = server.NewMCPServer(
		"gistpub",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("publish_note",
		mcp.WithDescription("Publish a note to a private GitHub gist. The first publish creates "+
			"the gist and records its id as gist_id in the note's front matter; later publishes "+
			"update the same gist. Wikilinks to other published notes become gist links."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), mcp.NewTypedToolHandler(s.publishNote))

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally only those already published to a gist."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
		mcp.WithBoolean("published_only", mcp.Description("Only list notes that carry a gist_id")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_publish_status",
		mcp.WithDescription("Report whether a note is published and the URL of its gist."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.getPublishStatus)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Publish Format",
			mcp.WithResourceDescription("How gistpub records publish state in a note and rewrites its links."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// Serve runs the stdio transport on in/out until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) publishNote(ctx context.Context, _ mcp.CallToolRequest, args PublishRequest) (*mcp.CallToolResult, error) {
	if args.Path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	res, err := s.publisher.PublishFile(ctx, args.Path)
	if err != nil {
		return mcp.NewToolResultError(publisher.Notice(err)), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.notes.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")
	publishedOnly := req.GetBool("published_only", false)

	items, err := s.notes.ListNotes(ctx, publishedOnly)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, it := range items {
		if folder != "" && !strings.HasPrefix(it.Path, folder+"/") {
			continue
		}
		line := it.Path
		if it.GistID != "" {
			line += "\t" + it.GistID
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getPublishStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.notes.Status(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(st, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     PublishFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.notes.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}
