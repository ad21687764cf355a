package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/S4nzh4r/ya-note/internal/auth"
	"github.com/S4nzh4r/ya-note/internal/errs"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/notes"
)

// Server exposes the note service as MCP tools acting for the user on the
// request context.
type Server struct {
	notes *notes.Service
	mcp   *server.MCPServer
}

func NewMCPServer(svc *notes.Service) *Server {
	s := &Server{
		notes: svc,
		mcp:   server.NewMCPServer("YaNote", "1.0.0", server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List your notes, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	), s.listNotesHandler)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read one of your notes by slug."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("The note slug")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	), s.getNoteHandler)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The slug is derived from the title when omitted."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, at most 100 characters")),
		mcp.WithString("text", mcp.Description("Note text in Markdown")),
		mcp.WithString("slug", mcp.Description("Unique slug of letters, digits, - and _")),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	), s.createNoteHandler)

	s.mcp.AddTool(mcp.NewTool("edit_note",
		mcp.WithDescription("Replace the title, text and optionally the slug of one of your notes."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Current slug of the note")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("text", mcp.Description("New text in Markdown")),
		mcp.WithString("new_slug", mcp.Description("New slug; derived from the title when omitted")),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	), s.editNoteHandler)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete one of your notes."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("The note slug")),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	), s.deleteNoteHandler)

	return s
}

// Handler returns the streamable HTTP endpoint. The user attached to the
// HTTP request is carried into every tool call.
func (s *Server) Handler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if user, ok := auth.UserFromContext(r.Context()); ok {
				return auth.WithUser(ctx, user)
			}
			return ctx
		}),
	)
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(errs.MessageOf(err))
}

func formatNote(n *models.Note) string {
	return fmt.Sprintf("# %s\nslug: %s\nupdated: %s\n\n%s",
		n.Title, n.Slug, n.UpdatedAt.Format(time.RFC3339), n.Text)
}

func caller(ctx context.Context) *models.User {
	user, _ := auth.UserFromContext(ctx)
	return user
}

func (s *Server) listNotesHandler(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.notes.List(ctx, caller(ctx))
	if err != nil {
		return toolError(err), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No notes yet."), nil
	}

	lines := make([]string, 0, len(list))
	for _, n := range list {
		lines = append(lines, fmt.Sprintf("[%s] %s (%s)", n.CreatedAt.Format(time.RFC3339), n.Title, n.Slug))
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d notes:\n%s", len(list), strings.Join(lines, "\n"))), nil
}

func (s *Server) getNoteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := request.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError("slug is required"), nil
	}
	note, err := s.notes.Get(ctx, caller(ctx), slug)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(formatNote(note)), nil
}

func (s *Server) createNoteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title is required"), nil
	}
	note, err := s.notes.Create(ctx, caller(ctx), notes.NoteInput{
		Title: title,
		Text:  request.GetString("text", ""),
		Slug:  request.GetString("slug", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Created note " + note.Slug), nil
}

func (s *Server) editNoteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := request.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError("slug is required"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title is required"), nil
	}
	note, err := s.notes.Edit(ctx, caller(ctx), slug, notes.NoteInput{
		Title: title,
		Text:  request.GetString("text", ""),
		Slug:  request.GetString("new_slug", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Updated note " + note.Slug), nil
}

func (s *Server) deleteNoteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := request.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError("slug is required"), nil
	}
	if err := s.notes.Delete(ctx, caller(ctx), slug); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Deleted note " + slug), nil
}
