package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/S4nzh4r/ya-note/internal/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// MCP serves /mcp for logged-in users when set.
	MCP          http.Handler
	LoginLimiter *middleware.IPRateLimiter
	Logger       *slog.Logger
}

// NewRouter wires the HTML routes. Everything except the home page and the
// auth pages requires a logged-in user.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Authenticate(h.tokens, h.accounts, logger))

	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/auth/signup/", h.Signup).Methods(http.MethodGet, http.MethodPost)
	login := http.Handler(http.HandlerFunc(h.Login))
	if opts.LoginLimiter != nil {
		login = middleware.RateLimit(opts.LoginLimiter)(login)
	}
	r.Handle("/auth/login/", login).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/auth/logout/", h.Logout).Methods(http.MethodGet, http.MethodPost)

	private := r.NewRoute().Subrouter()
	private.Use(middleware.RequireLogin(LoginURL))
	private.HandleFunc("/notes/", h.List).Methods(http.MethodGet)
	private.HandleFunc("/add/", h.Add).Methods(http.MethodGet, http.MethodPost)
	private.HandleFunc("/note/{slug}/", h.Detail).Methods(http.MethodGet)
	private.HandleFunc("/edit/{slug}/", h.Edit).Methods(http.MethodGet, http.MethodPost)
	private.HandleFunc("/delete/{slug}/", h.Delete).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	private.HandleFunc("/done/", h.Done).Methods(http.MethodGet)
	if opts.MCP != nil {
		private.Handle("/mcp", opts.MCP)
	}

	return r
}
