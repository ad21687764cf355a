package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/S4nzh4r/ya-note/internal/auth"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/store"
)

// TokenValidator resolves a token to a user id.
type TokenValidator interface {
	Validate(token string) (int64, error)
}

// UserLookup loads the user a token was issued for.
type UserLookup interface {
	Lookup(ctx context.Context, id int64) (*models.User, error)
}

// Authenticate attaches the user named by a valid auth cookie to the request
// context. Requests without one, or whose user no longer exists, pass through
// anonymously. Any other lookup failure is a 500.
func Authenticate(tokens TokenValidator, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Validate(cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Lookup(r.Context(), userID)
			if errors.Is(err, store.ErrNotFound) {
				logger.DebugContext(r.Context(), "auth cookie for unknown user", "user_id", userID)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				logger.ErrorContext(r.Context(), "user lookup failed", "user_id", userID, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// LoginRedirect returns the login URL that sends the user back to r
// afterwards.
func LoginRedirect(loginURL string, r *http.Request) string {
	return loginURL + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
}

// RequireLogin redirects anonymous requests to loginURL.
func RequireLogin(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserFromContext(r.Context()); !ok {
				http.Redirect(w, r, LoginRedirect(loginURL, r), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
