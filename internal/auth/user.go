package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/S4nzh4r/ya-note/internal/errs"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"
)

const (
	MinPasswordLength = 8
	maxUsernameLength = 150
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

var errBadCredentials = errs.New(errs.Unauthenticated, "invalid username or password")

// Accounts registers users and checks their credentials.
type Accounts struct {
	store store.Store
	// Cost is the bcrypt cost used for new password hashes.
	Cost int
}

func NewAccounts(s store.Store) *Accounts {
	return &Accounts{store: s, Cost: bcrypt.DefaultCost}
}

// Register creates a user with a bcrypt hash of password.
func (a *Accounts) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, errs.OnField(errs.InvalidArgument, "username", "username is required", nil)
	case len(username) > maxUsernameLength:
		return nil, errs.OnField(errs.InvalidArgument, "username", "username is too long", nil)
	case !usernamePattern.MatchString(username):
		return nil, errs.OnField(errs.InvalidArgument, "username",
			"username may contain only letters, digits and @/./+/-/_", nil)
	case len(password) < MinPasswordLength:
		return nil, errs.OnField(errs.InvalidArgument, "password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := a.store.CreateUser(ctx, username, string(hash))
	if errors.Is(err, store.ErrUsernameTaken) {
		return nil, errs.OnField(errs.AlreadyExists, "username", "a user with that username already exists", err)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login returns the user whose credentials match. Unknown users and wrong
// passwords fail the same way.
func (a *Accounts) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return user, nil
}

// Lookup returns the user with id, used to resolve validated tokens.
func (a *Accounts) Lookup(ctx context.Context, id int64) (*models.User, error) {
	return a.store.GetUserByID(ctx, id)
}
