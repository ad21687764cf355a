package store

import (
	"context"
	"errors"

	"github.com/S4nzh4r/ya-note/internal/models"
)

var (
	// ErrNotFound is returned when a lookup, update or delete matched no row.
	ErrNotFound = errors.New("store: not found")

	// ErrSlugTaken is returned when a write would violate the unique slug
	// constraint.
	ErrSlugTaken = errors.New("store: slug already taken")

	// ErrUsernameTaken is returned when a user with the same name exists.
	ErrUsernameTaken = errors.New("store: username already taken")
)

// Store defines the interface for all database operations.
// Uniqueness of note slugs and usernames is enforced by the backend itself,
// not by callers checking first.
type Store interface {
	// Users
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// Notes
	CreateNote(ctx context.Context, note *models.Note) error
	GetNoteBySlug(ctx context.Context, slug string) (*models.Note, error)
	ListNotesByAuthor(ctx context.Context, authorID int64) ([]models.Note, error)
	// SlugExists reports whether a note other than excludeID uses slug.
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	// UpdateNote rewrites title, text and slug of the note with note.ID
	// owned by note.AuthorID.
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, noteID, authorID int64) error
	CountNotes(ctx context.Context) (int, error)

	Close() error
}
