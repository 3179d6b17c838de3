package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/cms-admin/internal/ports"
	"github.com/target/cms-admin/internal/service"
)

// AuthHandlers provides the login, logout and session-status endpoints.
type AuthHandlers struct {
	Guard    *service.Guard
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginPage renders the login form.
// GET /admin/login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginView{})
}

// Login exchanges the submitted credentials for a session.
// POST /admin/login with form fields email, password and remember_me.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	mgr, ok := SessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "session_missing", Err: errSessionMissing})
		return
	}
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return
	}

	in := ports.LoginInput{
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Password:   r.PostFormValue("password"),
		RememberMe: formBool(r.PostFormValue("remember_me")),
	}

	if err := mgr.Login(r.Context(), in); err != nil {
		var le *service.LoginError
		msg := service.DefaultLoginMessage
		if errors.As(err, &le) {
			msg = le.Message
		}
		h.renderLogin(withStatus(w, http.StatusUnprocessableEntity), r, loginView{
			Email:      in.Email,
			RememberMe: in.RememberMe,
			Error:      msg,
		})
		return
	}

	Navigate(w, r, redirectHome(h.Guard))
}

// Logout ends the session and sends the browser to the login page.
// POST /admin/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	mgr, ok := SessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "session_missing", Err: errSessionMissing})
		return
	}
	Navigate(w, r, mgr.Logout(r.Context(), h.Guard.LoginPath()))
}

// sessionStatus is the JSON body of GET /admin/session.
type sessionStatus struct {
	Authenticated bool         `json:"authenticated"`
	State         string       `json:"state"`
	User          *sessionUser `json:"user,omitempty"`
}

type sessionUser struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Status returns the current authentication status.
// GET /admin/session.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	mgr, ok := SessionFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, sessionStatus{State: "unauthenticated"})
		return
	}
	snap := mgr.Snapshot()
	body := sessionStatus{State: snap.State.String()}
	if id := snap.Identity; id != nil {
		roles := id.Roles
		if roles == nil {
			roles = []string{}
		}
		body.Authenticated = true
		body.User = &sessionUser{ID: id.ID, Name: id.Name, Email: id.Email, Roles: roles}
	}
	WriteJSON(w, http.StatusOK, body)
}

type loginView struct {
	Email      string
	RememberMe bool
	Error      string
}

func (h *AuthHandlers) renderLogin(w http.ResponseWriter, r *http.Request, v loginView) {
	data := NewTemplateData(r, PageMeta{Title: "Admin Login", CurrentPage: PageLogin}).
		With("Login", v).
		With("LoginPath", h.Guard.LoginPath()).
		Build()
	if err := h.Renderer.RenderFull(w, r, data); err != nil {
		h.logger().ErrorContext(r.Context(), "render login page failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
