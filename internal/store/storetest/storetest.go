// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"
)

// Factory returns a fresh, empty store. The store is closed by Run.
type Factory func(t *testing.T) store.Store

// Run executes the shared store contract against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Users", testUsers},
		{"CreateAndGetNote", testCreateAndGetNote},
		{"SlugUnique", testSlugUnique},
		{"ListByAuthor", testListByAuthor},
		{"UpdateFilteredByAuthor", testUpdateFilteredByAuthor},
		{"UpdateUnchangedNote", testUpdateUnchangedNote},
		{"DeleteFilteredByAuthor", testDeleteFilteredByAuthor},
		{"ConcurrentCreateSameSlug", testConcurrentCreateSameSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func mustUser(t *testing.T, s store.Store, name string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), name, "hash-"+name)
	require.NoError(t, err)
	require.NotZero(t, u.ID)
	return u
}

func mustNote(t *testing.T, s store.Store, author *models.User, slug string) *models.Note {
	t.Helper()
	n := &models.Note{Title: "Title " + slug, Text: "Text", Slug: slug, AuthorID: author.ID}
	require.NoError(t, s.CreateNote(context.Background(), n))
	require.NotZero(t, n.ID)
	return n
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")

	got, err := s.GetUserByUsername(ctx, "author")
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.ID)
	assert.Equal(t, "hash-author", got.PasswordHash)

	got, err = s.GetUserByID(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "author", got.Username)

	_, err = s.CreateUser(ctx, "author", "other")
	assert.ErrorIs(t, err, store.ErrUsernameTaken)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByID(ctx, author.ID+100)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCreateAndGetNote(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	created := mustNote(t, s, author, "test-slug")

	got, err := s.GetNoteBySlug(ctx, "test-slug")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Title test-slug", got.Title)
	assert.Equal(t, "Text", got.Text)
	assert.Equal(t, author.ID, got.AuthorID)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetNoteBySlug(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err := s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testSlugUnique(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	reader := mustUser(t, s, "reader")
	first := mustNote(t, s, author, "slug")
	second := mustNote(t, s, author, "other")

	err := s.CreateNote(ctx, &models.Note{Title: "Dup", Slug: "slug", AuthorID: reader.ID})
	assert.ErrorIs(t, err, store.ErrSlugTaken)

	exists, err := s.SlugExists(ctx, "slug", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.SlugExists(ctx, "slug", first.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a note never clashes with itself")

	second.Slug = "slug"
	assert.ErrorIs(t, s.UpdateNote(ctx, second), store.ErrSlugTaken)

	got, err := s.GetNoteBySlug(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	count, err := s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func testListByAuthor(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	reader := mustUser(t, s, "reader")
	mustNote(t, s, author, "a1")
	mustNote(t, s, author, "a2")
	mustNote(t, s, reader, "r1")

	notes, err := s.ListNotesByAuthor(ctx, author.ID)
	require.NoError(t, err)
	slugs := make([]string, 0, len(notes))
	for _, n := range notes {
		assert.Equal(t, author.ID, n.AuthorID)
		slugs = append(slugs, n.Slug)
	}
	assert.ElementsMatch(t, []string{"a1", "a2"}, slugs)

	notes, err = s.ListNotesByAuthor(ctx, reader.ID+author.ID+100)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

// Saving a note without changes, back to back, still finds the row.
func testUpdateUnchangedNote(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	note := mustNote(t, s, author, "slug")

	for range 5 {
		same := *note
		require.NoError(t, s.UpdateNote(ctx, &same))
	}

	got, err := s.GetNoteBySlug(ctx, "slug")
	require.NoError(t, err)
	assert.Equal(t, note.Title, got.Title)
	assert.Equal(t, author.ID, got.AuthorID)
}

func testUpdateFilteredByAuthor(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	reader := mustUser(t, s, "reader")
	note := mustNote(t, s, author, "slug")

	hijack := *note
	hijack.AuthorID = reader.ID
	hijack.Title = "Hijacked"
	assert.ErrorIs(t, s.UpdateNote(ctx, &hijack), store.ErrNotFound)

	note.Title = "New_Title"
	note.Text = "NEW_TEXT"
	note.Slug = "new-slug"
	require.NoError(t, s.UpdateNote(ctx, note))

	_, err := s.GetNoteBySlug(ctx, "slug")
	assert.ErrorIs(t, err, store.ErrNotFound)
	got, err := s.GetNoteBySlug(ctx, "new-slug")
	require.NoError(t, err)
	assert.Equal(t, "New_Title", got.Title)
	assert.Equal(t, "NEW_TEXT", got.Text)
	assert.Equal(t, author.ID, got.AuthorID)

	// The old slug is free again.
	mustNote(t, s, reader, "slug")
}

func testDeleteFilteredByAuthor(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	reader := mustUser(t, s, "reader")
	note := mustNote(t, s, author, "slug")

	assert.ErrorIs(t, s.DeleteNote(ctx, note.ID, reader.ID), store.ErrNotFound)
	count, err := s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.DeleteNote(ctx, note.ID, author.ID))
	count, err = s.CountNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.ErrorIs(t, s.DeleteNote(ctx, note.ID, author.ID), store.ErrNotFound)
	mustNote(t, s, reader, "slug")
}

func testConcurrentCreateSameSlug(t *testing.T, s store.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "author")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateNote(ctx, &models.Note{
				Title:    fmt.Sprintf("Title %d", i),
				Slug:     "race",
				AuthorID: author.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, store.ErrSlugTaken):
				taken++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, taken)
}
