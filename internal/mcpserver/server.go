// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notegraph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/noteservice"
	"github.com/starford/notegraph/internal/storage"
)

// ContractURI names the note format resource.
const ContractURI = "notegraph://note-format"

// Server wraps the MCP server with notegraph tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	files  *storage.Attachments
	logger *slog.Logger
}

// New creates a new MCP server with all notegraph tools registered.
// Attachments are written to store.
func New(svc *noteservice.Service, store storage.Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, files: storage.NewAttachments(store), logger: logger}

	s.mcp = server.NewMCPServer(
		"notegraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, bodies and tasks."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as a markdown file with frontmatter and task section."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("view_note",
		mcp.WithDescription("Show a note with every embed expanded, as the application displays it. "+
			"Embeds that would recurse are shown as links."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.viewNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note from a markdown file. "+
			"Content MUST follow the note format contract (YAML frontmatter with title, "+
			"markdown body with [[Title]] links and ![[Title]] embeds). Read the contract first via "+
			"the get_note_contract tool or the "+ContractURI+" resource. "+
			"A note whose frontmatter id matches an existing note replaces it."),
		mcp.WithString("name", mcp.Description("File name; a trailing -<id>.md selects the note id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Change a note's title. Notes that link to it show the new title."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes as \"id<TAB>title\" lines, most recently updated first."),
		mcp.WithString("tag", mcp.Description("Only notes carrying this tag")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 50)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to or embed the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return the note graph: nodes, edges and counters."),
		mcp.WithBoolean("stats_only", mcp.Description("Only return the counters")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("resolve_reference",
		mcp.WithDescription("Classify a reference from one note to a target as resolved, circular or dangling."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Id of the referencing note")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target note id or title")),
	), s.resolveReference)

	s.mcp.AddTool(mcp.NewTool("suggest_links",
		mcp.WithDescription("Suggest notes to link to by fuzzy matching their titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Partial title")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of suggestions")),
	), s.suggestLinks)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image or PDF in the vault attachments and return markdown that references it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or base64 data: URI of the file")),
		mcp.WithString("filename", mcp.Description("File name to store under (extension decides the type)")),
	), s.uploadAsset)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Note Format Contract",
			mcp.WithResourceDescription("Canonical markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp,
		server.WithErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)))
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool error result. Errors the
// caller can act on keep their message; others are logged.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("note not found")
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(err.Error())
	}
	s.logger.Error("mcp tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError("internal error: " + err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return s.toolError("search_notes", err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, data, err := s.svc.ExportMarkdown(ctx, id)
	if err != nil {
		return s.toolError("read_note", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) viewNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.View(ctx, id)
	if err != nil {
		return s.toolError("view_note", err), nil
	}
	var b strings.Builder
	writeView(&b, v, 0)
	return mcp.NewToolResultText(b.String()), nil
}

// writeView prints a view with embedded notes indented as quotes below the
// note that embeds them.
func writeView(b *strings.Builder, v *noteservice.ViewDetail, depth int) {
	prefix := strings.Repeat("> ", depth)
	b.WriteString(prefix + "# " + v.Title + " (" + v.ID + ")\n")
	for _, line := range strings.Split(v.Markdown, "\n") {
		b.WriteString(strings.TrimRight(prefix+line, " ") + "\n")
	}
	for _, r := range v.Refs {
		if r.Embedded != nil {
			b.WriteString(strings.TrimRight(prefix, " ") + "\n")
			writeView(b, r.Embedded, depth+1)
		}
	}
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("name", "note.md")
	note, created, err := s.svc.ImportMarkdown(ctx, name, []byte(content))
	if err != nil {
		return s.toolError("create_note", err), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(verb + ": " + note.ID + " " + note.Path), nil
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Rename(ctx, id, title, "")
	if err != nil {
		return s.toolError("rename_note", err), nil
	}
	return mcp.NewToolResultText("renamed: " + note.ID + " " + note.Path), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.List(ctx, req.GetInt("limit", 50), 0, req.GetString("tag", ""), "")
	if err != nil {
		return s.toolError("list_notes", err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.ID + "\t" + it.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return s.toolError("get_backlinks", err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("stats_only", false) {
		st, err := s.svc.GraphStats(ctx)
		if err != nil {
			return s.toolError("get_graph", err), nil
		}
		return jsonResult(st), nil
	}
	g, err := s.svc.Graph(ctx)
	if err != nil {
		return s.toolError("get_graph", err), nil
	}
	return jsonResult(g), nil
}

func (s *Server) resolveReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, from, target)
	if err != nil {
		return s.toolError("resolve_reference", err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) suggestLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sug, err := s.svc.Suggest(ctx, query, req.GetInt("limit", noteservice.DefaultSuggestLimit))
	if err != nil {
		return s.toolError("suggest_links", err), nil
	}
	return jsonResult(sug), nil
}
