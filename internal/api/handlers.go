package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/S4nzh4r/ya-note/internal/auth"
	"github.com/S4nzh4r/ya-note/internal/errs"
	"github.com/S4nzh4r/ya-note/internal/models"
	"github.com/S4nzh4r/ya-note/internal/notes"
)

const (
	LoginURL = "/auth/login/"
	DoneURL  = "/done/"
)

// page is the data every template receives.
type page struct {
	User   *models.User
	Notes  []models.Note
	Note   *models.Note
	Form   notes.NoteInput
	Action string
	Errors map[string]string
	Error  string

	Username string
	Next     string
}

// Handlers serves the HTML front end.
type Handlers struct {
	notes        *notes.Service
	accounts     *auth.Accounts
	tokens       *auth.TokenService
	render       *Renderer
	logger       *slog.Logger
	secureCookie bool
}

// Options carries the dependencies of the HTML handlers.
type Options struct {
	Notes        *notes.Service
	Accounts     *auth.Accounts
	Tokens       *auth.TokenService
	Renderer     *Renderer
	Logger       *slog.Logger
	SecureCookie bool
}

func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		notes:        opts.Notes,
		accounts:     opts.Accounts,
		tokens:       opts.Tokens,
		render:       opts.Renderer,
		logger:       logger,
		secureCookie: opts.SecureCookie,
	}
}

func currentUser(r *http.Request) *models.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	data.User = currentUser(r)
	if err := h.render.Render(w, status, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "render failed", "template", name, "error", err)
	}
}

// fail writes the response for a service error that is not a form error.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	switch code {
	case errs.NotFound:
		http.NotFound(w, r)
	case errs.Unauthenticated:
		http.Redirect(w, r, LoginURL, http.StatusFound)
	case errs.Internal:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		http.Error(w, errs.MessageOf(err), errs.HTTPStatus(code))
	}
}

// formErrors turns a validation or duplicate-slug error into per-field
// messages. ok is false for any other error.
func formErrors(err error) (fields map[string]string, msg string, ok bool) {
	switch errs.CodeOf(err) {
	case errs.InvalidArgument, errs.AlreadyExists:
	default:
		return nil, "", false
	}
	if field := errs.FieldOf(err); field != "" {
		return map[string]string{field: errs.MessageOf(err)}, "", true
	}
	return nil, errs.MessageOf(err), true
}

func noteInput(r *http.Request) notes.NoteInput {
	return notes.NoteInput{
		Title: r.PostFormValue("title"),
		Text:  r.PostFormValue("text"),
		Slug:  r.PostFormValue("slug"),
	}
}

func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "home.html", page{})
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notes.List(r.Context(), currentUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, "list.html", page{Notes: list})
}

func (h *Handlers) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.renderPage(w, r, http.StatusOK, "form.html", page{Action: "/add/"})
		return
	}

	in := noteInput(r)
	if _, err := h.notes.Create(r.Context(), currentUser(r), in); err != nil {
		fields, msg, ok := formErrors(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		h.renderPage(w, r, http.StatusOK, "form.html", page{Action: "/add/", Form: in, Errors: fields, Error: msg})
		return
	}
	http.Redirect(w, r, DoneURL, http.StatusFound)
}

func (h *Handlers) Detail(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), currentUser(r), mux.Vars(r)["slug"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, "detail.html", page{Note: note})
}

func (h *Handlers) Edit(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	user := currentUser(r)

	note, err := h.notes.Get(r.Context(), user, slug)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	action := "/edit/" + url.PathEscape(note.Slug) + "/"

	if r.Method == http.MethodGet {
		form := notes.NoteInput{Title: note.Title, Text: note.Text, Slug: note.Slug}
		h.renderPage(w, r, http.StatusOK, "form.html", page{Note: note, Action: action, Form: form})
		return
	}

	in := noteInput(r)
	if _, err := h.notes.Edit(r.Context(), user, slug, in); err != nil {
		fields, msg, ok := formErrors(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		h.renderPage(w, r, http.StatusOK, "form.html", page{Note: note, Action: action, Form: in, Errors: fields, Error: msg})
		return
	}
	http.Redirect(w, r, DoneURL, http.StatusFound)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	user := currentUser(r)

	if r.Method == http.MethodGet {
		note, err := h.notes.Get(r.Context(), user, slug)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.renderPage(w, r, http.StatusOK, "delete.html", page{Note: note})
		return
	}

	if err := h.notes.Delete(r.Context(), user, slug); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, DoneURL, http.StatusFound)
}

func (h *Handlers) Done(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "done.html", page{})
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.renderPage(w, r, http.StatusOK, "signup.html", page{})
		return
	}

	username := r.PostFormValue("username")
	user, err := h.accounts.Register(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		fields, msg, ok := formErrors(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		h.renderPage(w, r, http.StatusOK, "signup.html", page{Username: username, Errors: fields, Error: msg})
		return
	}

	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID, "username", user.Username)
	if err := h.startSession(w, user); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/notes/", http.StatusFound)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.FormValue("next"))
	if r.Method == http.MethodGet {
		h.renderPage(w, r, http.StatusOK, "login.html", page{Next: next})
		return
	}

	username := r.PostFormValue("username")
	user, err := h.accounts.Login(r.Context(), username, r.PostFormValue("password"))
	if errs.Is(err, errs.Unauthenticated) {
		h.renderPage(w, r, http.StatusOK, "login.html", page{Next: next, Username: username, Error: errs.MessageOf(err)})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.startSession(w, user); err != nil {
		h.fail(w, r, err)
		return
	}
	if next == "" {
		next = "/notes/"
	}
	http.Redirect(w, r, next, http.StatusFound)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.tokens.Revoke(cookie.Value)
	}
	auth.ClearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handlers) startSession(w http.ResponseWriter, user *models.User) error {
	token, expires, err := h.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	auth.SetAuthCookie(w, token, expires, h.secureCookie)
	return nil
}

// safeNext keeps only local absolute paths, so login cannot redirect
// off-site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}
