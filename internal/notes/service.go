package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/S4nzh4r/ya-note/internal/errs"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"
)

// MaxTitleLength is the longest accepted note title, in characters.
const MaxTitleLength = 100

var (
	errUnauthenticated = errs.New(errs.Unauthenticated, "login required")
	errNoteNotFound    = errs.New(errs.NotFound, "note not found")
)

// NoteInput carries the user-editable fields of a note. An empty Slug asks
// for one derived from the title.
type NoteInput struct {
	Title string
	Text  string
	Slug  string
}

// Service handles note CRUD operations on behalf of an explicit user.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a note service backed by s.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger}
}

// List returns the notes authored by user, newest first.
func (s *Service) List(ctx context.Context, user *models.User) ([]models.Note, error) {
	if user == nil {
		return nil, errUnauthenticated
	}
	notes, err := s.store.ListNotesByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns the note stored under slug if user may see it. A missing note
// and someone else's note produce the same not-found error.
func (s *Service) Get(ctx context.Context, user *models.User, slug string) (*models.Note, error) {
	if user == nil {
		return nil, errUnauthenticated
	}
	note, err := s.store.GetNoteBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	if !CanView(user, note) {
		return nil, errNoteNotFound
	}
	return note, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errs.OnField(errs.InvalidArgument, "title", "title is required", nil)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", errs.OnField(errs.InvalidArgument, "title", "title must be at most 100 characters", nil)
	}
	return title, nil
}

// Create stores a new note authored by user.
func (s *Service) Create(ctx context.Context, user *models.User, in NoteInput) (*models.Note, error) {
	if user == nil {
		return nil, errUnauthenticated
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	slug, err := s.ResolveSlug(ctx, title, in.Slug, 0)
	if err != nil {
		return nil, err
	}

	note := &models.Note{
		Title:    title,
		Text:     in.Text,
		Slug:     slug,
		AuthorID: user.ID,
	}
	err = s.store.CreateNote(ctx, note)
	if errors.Is(err, store.ErrSlugTaken) {
		// Another request took the slug between the check and the insert.
		return nil, duplicateSlug(slug)
	}
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.InfoContext(ctx, "note created", "note_id", note.ID, "slug", note.Slug, "author_id", user.ID)
	return note, nil
}

// Edit rewrites title, text and slug of the note stored under slug.
func (s *Service) Edit(ctx context.Context, user *models.User, slug string, in NoteInput) (*models.Note, error) {
	note, err := s.Get(ctx, user, slug)
	if err != nil {
		return nil, err
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	newSlug, err := s.ResolveSlug(ctx, title, in.Slug, note.ID)
	if err != nil {
		return nil, err
	}

	updated := *note
	updated.Title = title
	updated.Text = in.Text
	updated.Slug = newSlug
	err = s.store.UpdateNote(ctx, &updated)
	switch {
	case errors.Is(err, store.ErrSlugTaken):
		return nil, duplicateSlug(newSlug)
	case errors.Is(err, store.ErrNotFound):
		return nil, errNoteNotFound
	case err != nil:
		return nil, fmt.Errorf("update note: %w", err)
	}

	s.logger.InfoContext(ctx, "note updated", "note_id", updated.ID, "slug", updated.Slug, "author_id", user.ID)
	return &updated, nil
}

// Delete removes the note stored under slug.
func (s *Service) Delete(ctx context.Context, user *models.User, slug string) error {
	note, err := s.Get(ctx, user, slug)
	if err != nil {
		return err
	}
	err = s.store.DeleteNote(ctx, note.ID, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return errNoteNotFound
	}
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	s.logger.InfoContext(ctx, "note deleted", "note_id", note.ID, "slug", note.Slug, "author_id", user.ID)
	return nil
}
