package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DBType represents the type of database
type DBType string

const (
	SQLite   DBType = "sqlite3"
	Postgres DBType = "postgres"
	MySQL    DBType = "mysql"
)

// SQLStore implements the Store interface for SQL databases
type SQLStore struct {
	db     *sql.DB
	dbType DBType
}

var _ store.Store = (*SQLStore)(nil)

// New creates a new SQLStore with the given driver and connection string.
// MySQL DSNs get parseTime and clientFoundRows switched on.
func New(driver, connStr string) (*SQLStore, error) {
	dbType := DBType(driver)
	switch dbType {
	case SQLite, Postgres:
	case MySQL:
		dsn, err := mysqlDSN(connStr)
		if err != nil {
			return nil, err
		}
		connStr = dsn
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, err
	}

	// A single connection keeps :memory: databases alive across queries and
	// serialises writers the way SQLite wants anyway.
	if dbType == SQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{
		db:     db,
		dbType: dbType,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// mysqlDSN makes MySQL scan DATETIME columns into time.Time and report
// matched rather than changed rows, so an update that rewrites identical
// values still counts as found.
func mysqlDSN(connStr string) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dbType != Postgres {
		return query
	}
	var result strings.Builder
	argNum := 1
	for _, c := range query {
		if c == '?' {
			result.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

func (s *SQLStore) initSchema() error {
	var createUsersTable, createNotesTable, createAuthorIndex string

	switch s.dbType {
	case Postgres:
		createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		);`

		createNotesTable = `
		CREATE TABLE IF NOT EXISTS notes (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(100) NOT NULL,
			text TEXT NOT NULL,
			slug VARCHAR(100) NOT NULL UNIQUE,
			author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`

		createAuthorIndex = `CREATE INDEX IF NOT EXISTS notes_author_id_idx ON notes (author_id);`

	case MySQL:
		createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL
		) ENGINE=InnoDB;`

		createNotesTable = `
		CREATE TABLE IF NOT EXISTS notes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(100) NOT NULL,
			text TEXT NOT NULL,
			slug VARCHAR(100) NOT NULL UNIQUE,
			author_id BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX notes_author_id_idx (author_id),
			FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
		) ENGINE=InnoDB;`

	default:
		createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		);`

		createNotesTable = `
		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			author_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY(author_id) REFERENCES users(id) ON DELETE CASCADE
		);`

		createAuthorIndex = `CREATE INDEX IF NOT EXISTS notes_author_id_idx ON notes (author_id);`
	}

	for _, stmt := range []string{createUsersTable, createNotesTable, createAuthorIndex} {
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation recognises unique constraint failures of every
// supported driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// insert runs an INSERT and returns the new row id.
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s.dbType == Postgres {
		var id int64
		err := s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// User functions
func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	id, err := s.insert(ctx, "INSERT INTO users (username, password_hash) VALUES (?, ?)", username, passwordHash)
	if isUniqueViolation(err) {
		return nil, store.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &models.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, username, password_hash FROM users WHERE username = ?", username)
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, username, password_hash FROM users WHERE id = ?", id)
}

func (s *SQLStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Note functions
func (s *SQLStore) CreateNote(ctx context.Context, note *models.Note) error {
	now := time.Now().UTC()
	id, err := s.insert(ctx,
		"INSERT INTO notes (title, text, slug, author_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		note.Title, note.Text, note.Slug, note.AuthorID, now, now)
	if isUniqueViolation(err) {
		return store.ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	note.ID = id
	note.CreatedAt = now
	note.UpdatedAt = now
	return nil
}

const noteColumns = "id, title, text, slug, author_id, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.Title, &n.Text, &n.Slug, &n.AuthorID, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (s *SQLStore) GetNoteBySlug(ctx context.Context, slug string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+noteColumns+" FROM notes WHERE slug = ?"), slug)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

func (s *SQLStore) ListNotesByAuthor(ctx context.Context, authorID int64) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT "+noteColumns+" FROM notes WHERE author_id = ? ORDER BY created_at DESC, id DESC"), authorID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *SQLStore) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT COUNT(*) FROM notes WHERE slug = ? AND id <> ?"), slug, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) UpdateNote(ctx context.Context, note *models.Note) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE notes SET title = ?, text = ?, slug = ?, updated_at = ? WHERE id = ? AND author_id = ?"),
		note.Title, note.Text, note.Slug, now, note.ID, note.AuthorID)
	if isUniqueViolation(err) {
		return store.ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	note.UpdatedAt = now
	return nil
}

func (s *SQLStore) DeleteNote(ctx context.Context, noteID, authorID int64) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM notes WHERE id = ? AND author_id = ?"), noteID, authorID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) CountNotes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return n, nil
}
