// Package boltstore keeps users and notes in a single embedded bolt file.
//
// Slug and username uniqueness live in index buckets that are checked and
// written in the same read-write transaction as the record itself. Bolt runs
// one writer at a time, so the check cannot race another insert.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"slices"
	"time"

	"github.com/boltdb/bolt"

	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"
)

var (
	usersBucket     = []byte("users")
	usernamesBucket = []byte("usernames")
	notesBucket     = []byte("notes")
	slugsBucket     = []byte("slugs")
)

type Store struct {
	DB *bolt.DB
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the bolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{usersBucket, usernamesBucket, notesBucket, slugsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close the database and release the file lock
func (s *Store) Close() error {
	return s.DB.Close()
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	u := &models.User{Username: username, PasswordHash: passwordHash}
	err := s.DB.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		if names.Get([]byte(username)) != nil {
			return store.ErrUsernameTaken
		}

		users := tx.Bucket(usersBucket)
		seq, err := users.NextSequence()
		if err != nil {
			return err
		}
		u.ID = int64(seq)

		value, err := encode(u)
		if err != nil {
			return err
		}
		if err := users.Put(itob(u.ID), value); err != nil {
			return err
		}
		return names.Put([]byte(username), itob(u.ID))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	var u *models.User
	err := s.DB.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(usernamesBucket).Get([]byte(username))
		if id == nil {
			return store.ErrNotFound
		}
		var err error
		u, err = getUser(tx, id)
		return err
	})
	return u, err
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	var u *models.User
	err := s.DB.View(func(tx *bolt.Tx) error {
		var err error
		u, err = getUser(tx, itob(id))
		return err
	})
	return u, err
}

func getUser(tx *bolt.Tx, key []byte) (*models.User, error) {
	value := tx.Bucket(usersBucket).Get(key)
	if value == nil {
		return nil, store.ErrNotFound
	}
	var u models.User
	if err := decode(value, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func getNote(tx *bolt.Tx, key []byte) (*models.Note, error) {
	value := tx.Bucket(notesBucket).Get(key)
	if value == nil {
		return nil, store.ErrNotFound
	}
	var n models.Note
	if err := decode(value, &n); err != nil {
		return nil, fmt.Errorf("decode note: %w", err)
	}
	return &n, nil
}

func putNote(tx *bolt.Tx, n *models.Note) error {
	value, err := encode(n)
	if err != nil {
		return err
	}
	return tx.Bucket(notesBucket).Put(itob(n.ID), value)
}

func (s *Store) CreateNote(_ context.Context, note *models.Note) error {
	created := *note
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt

	err := s.DB.Update(func(tx *bolt.Tx) error {
		slugs := tx.Bucket(slugsBucket)
		if slugs.Get([]byte(created.Slug)) != nil {
			return store.ErrSlugTaken
		}

		seq, err := tx.Bucket(notesBucket).NextSequence()
		if err != nil {
			return err
		}
		created.ID = int64(seq)

		if err := putNote(tx, &created); err != nil {
			return err
		}
		return slugs.Put([]byte(created.Slug), itob(created.ID))
	})
	if err != nil {
		return err
	}
	*note = created
	return nil
}

func (s *Store) GetNoteBySlug(_ context.Context, slug string) (*models.Note, error) {
	var n *models.Note
	err := s.DB.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(slugsBucket).Get([]byte(slug))
		if id == nil {
			return store.ErrNotFound
		}
		var err error
		n, err = getNote(tx, id)
		return err
	})
	return n, err
}

func (s *Store) ListNotesByAuthor(_ context.Context, authorID int64) ([]models.Note, error) {
	var notes []models.Note
	err := s.DB.View(func(tx *bolt.Tx) error {
		return tx.Bucket(notesBucket).ForEach(func(_, value []byte) error {
			var n models.Note
			if err := decode(value, &n); err != nil {
				return fmt.Errorf("decode note: %w", err)
			}
			if n.AuthorID == authorID {
				notes = append(notes, n)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(notes, func(a, b models.Note) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return notes, nil
}

func (s *Store) SlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	err := s.DB.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(slugsBucket).Get([]byte(slug))
		exists = id != nil && btoi(id) != excludeID
		return nil
	})
	return exists, err
}

func (s *Store) UpdateNote(_ context.Context, note *models.Note) error {
	now := time.Now().UTC()
	return s.DB.Update(func(tx *bolt.Tx) error {
		existing, err := getNote(tx, itob(note.ID))
		if err != nil {
			return err
		}
		if existing.AuthorID != note.AuthorID {
			return store.ErrNotFound
		}

		slugs := tx.Bucket(slugsBucket)
		if existing.Slug != note.Slug {
			if slugs.Get([]byte(note.Slug)) != nil {
				return store.ErrSlugTaken
			}
			if err := slugs.Delete([]byte(existing.Slug)); err != nil {
				return err
			}
			if err := slugs.Put([]byte(note.Slug), itob(note.ID)); err != nil {
				return err
			}
		}

		existing.Title = note.Title
		existing.Text = note.Text
		existing.Slug = note.Slug
		existing.UpdatedAt = now
		if err := putNote(tx, existing); err != nil {
			return err
		}
		note.UpdatedAt = now
		return nil
	})
}

func (s *Store) DeleteNote(_ context.Context, noteID, authorID int64) error {
	return s.DB.Update(func(tx *bolt.Tx) error {
		existing, err := getNote(tx, itob(noteID))
		if err != nil {
			return err
		}
		if existing.AuthorID != authorID {
			return store.ErrNotFound
		}
		if err := tx.Bucket(slugsBucket).Delete([]byte(existing.Slug)); err != nil {
			return err
		}
		return tx.Bucket(notesBucket).Delete(itob(noteID))
	})
}

func (s *Store) CountNotes(_ context.Context) (int, error) {
	var n int
	err := s.DB.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(notesBucket).Stats().KeyN
		return nil
	})
	return n, err
}
