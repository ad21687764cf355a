package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/S4nzh4r/ya-note/internal/models"
)

// CookieName is the cookie carrying the signed auth token.
const CookieName = "auth_token"

// Context key for the authenticated user
type contextKey string

const userKey contextKey = "user"

var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and validates HS256 tokens identifying a user.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	revoked *Revocations
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: NewRevocations(),
	}
}

// Issue returns a signed token for userID and its expiry.
func (s *TokenService) Issue(userID int64) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

func (s *TokenService) parse(tokenStr string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate returns the user id the token was issued for.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return 0, err
	}
	if s.revoked.IsRevoked(claims.ID) {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// Revoke invalidates a token until it would have expired anyway. Invalid
// tokens are ignored.
func (s *TokenService) Revoke(tokenStr string) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time, s.now())
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// SetAuthCookie sets the auth cookie on the response
func SetAuthCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// ClearAuthCookie clears the auth cookie
func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
