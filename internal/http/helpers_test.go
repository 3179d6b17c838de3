package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/target/cms-admin/internal/adapters/backendapi"
	"github.com/target/cms-admin/internal/adapters/cookie"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/domain/content"
	mockauth "github.com/target/cms-admin/internal/mocks/auth"
	"github.com/target/cms-admin/internal/service"
)

var (
	editorAccount = mockauth.Account{
		Password: "secret",
		Identity: domainauth.Identity{ID: 1, Name: "Ngozi", Email: "editor@example.com", Roles: []string{"news"}},
	}
	superAccount = mockauth.Account{
		Password: "root-pass",
		Identity: domainauth.Identity{ID: 2, Name: "Root", Email: "super@example.com", Roles: []string{"super_admin"}},
	}
)

const (
	editorToken = "tok-editor"
	superToken  = "tok-super"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// contentServer stands in for the backend's content endpoints. Authenticated
// endpoints accept any credential the fake session backend still considers valid.
type contentServer struct {
	*httptest.Server

	mu        sync.Mutex
	deleted   []string
	statuses  map[string]string
	published map[string]string
	expired   bool
	inboxDown bool
}

func newContentServer(t *testing.T, fake *mockauth.FakeBackend) *contentServer {
	t.Helper()
	cs := &contentServer{statuses: map[string]string{}, published: map[string]string{}}

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			cs.mu.Lock()
			expired := cs.expired
			cs.mu.Unlock()
			if expired || !fake.Valid(tok) {
				writeBackendJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
				return
			}
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		writeBackendJSON(w, http.StatusOK, map[string]int{
			"news": 3, "projects": 2, "gallery": 1204, "testimonials": 4, "contacts": 5,
		})
	})
	mux.HandleFunc("GET /news", func(w http.ResponseWriter, _ *http.Request) {
		writeBackendJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "title": "Launch day", "published_at": "2025-01-10"},
			{"id": 2, "title": "Annual report", "published_at": nil},
		})
	})
	mux.HandleFunc("GET /gallery", func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if r.URL.Query().Get("page") == "2" {
			page = 2
		}
		writeBackendJSON(w, http.StatusOK, map[string]any{
			"data":         []map[string]any{{"id": 10 + page, "title": "Photo set " + r.URL.Query().Get("page")}},
			"current_page": page,
			"last_page":    2,
			"per_page":     12,
			"total":        13,
		})
	})
	mux.HandleFunc("GET /admin/contacts", authed(func(w http.ResponseWriter, _ *http.Request) {
		cs.mu.Lock()
		down := cs.inboxDown
		cs.mu.Unlock()
		if down {
			writeBackendJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Mail store offline"})
			return
		}
		writeBackendJSON(w, http.StatusOK, []map[string]any{
			{"id": 9, "name": "Grace", "status": "new"},
			{"id": 10, "name": "Tunde", "status": "replied"},
		})
	}))
	mux.HandleFunc("GET /admin/users", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeBackendJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "Ngozi", "roles": []string{"news"}},
			{"id": 2, "name": "Root", "roles": []string{"super_admin"}},
		})
	}))
	mux.HandleFunc("GET /admin/testimonials/all", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeBackendJSON(w, http.StatusInternalServerError, map[string]string{"message": "Database offline"})
	}))
	mux.HandleFunc("DELETE /admin/{section}/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.deleted = append(cs.deleted, r.PathValue("section")+"/"+r.PathValue("id"))
		cs.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("PUT /admin/{section}/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBackendJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "bad body"})
			return
		}
		cs.mu.Lock()
		cs.statuses[r.PathValue("section")+"/"+r.PathValue("id")] = body.Status
		cs.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, map[string]string{"status": body.Status})
	}))

	// Form updates arrive as multipart POST with a _method=PUT override.
	mux.HandleFunc("POST /admin/{section}/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil || r.FormValue("_method") != http.MethodPut {
			writeBackendJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
			return
		}
		cs.mu.Lock()
		cs.published[r.PathValue("section")+"/"+r.PathValue("id")] = r.FormValue("published_at")
		cs.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	}))
	mux.HandleFunc("PUT /admin/users/{id}/roles", authed(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Roles []string `json:"roles"`
		}
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || json.NewDecoder(r.Body).Decode(&body) != nil {
			writeBackendJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "bad body"})
			return
		}
		if !fake.SetRoles(id, body.Roles) {
			writeBackendJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
			return
		}
		writeBackendJSON(w, http.StatusOK, map[string]string{"message": "Roles updated"})
	}))

	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func (cs *contentServer) expireSessions() {
	cs.mu.Lock()
	cs.expired = true
	cs.mu.Unlock()
}

func (cs *contentServer) failInbox() {
	cs.mu.Lock()
	cs.inboxDown = true
	cs.mu.Unlock()
}

func (cs *contentServer) deletedItems() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.deleted...)
}

func (cs *contentServer) statusOf(key string) string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.statuses[key]
}

func (cs *contentServer) publishedAt(key string) (string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	v, ok := cs.published[key]
	return v, ok
}

func writeBackendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// harness is a fully wired router over fake backends.
type harness struct {
	fake     *mockauth.FakeBackend
	content  *contentServer
	guard    *service.Guard
	services RouterServices
	handler  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := mockauth.NewFakeBackend(editorAccount, superAccount)
	fake.Grant(editorToken, editorAccount.Identity.Email)
	fake.Grant(superToken, superAccount.Identity.Email)

	cs := newContentServer(t, fake)
	client, err := backendapi.NewClient(backendapi.Config{BaseURL: cs.URL})
	require.NoError(t, err)

	catalog := content.NewCatalog(domainauth.RoleSuperAdmin, content.DefaultSections(domainauth.RoleSuperAdmin))
	guard := service.NewGuard(service.GuardOptions{Policy: catalog.Policy()})
	services := RouterServices{
		Sessions: service.NewSessions(service.SessionsOptions{API: fake, Logger: quietLogger()}),
		Guard:    guard,
		Catalog:  catalog,
		Backend:  client,
		Logger:   quietLogger(),
		Now:      func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) },
	}
	handler, err := NewRouter(services)
	require.NoError(t, err)

	return &harness{fake: fake, content: cs, guard: guard, services: services, handler: handler}
}

type reqOpt func(*http.Request)

func withToken(tok string) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookie.DefaultName, Value: tok}) }
}

func asHTMX() reqOpt {
	return func(r *http.Request) { r.Header.Set("Hx-Request", "true") }
}

func (h *harness) get(path string, opts ...reqOpt) *httptest.ResponseRecorder {
	return h.serve(httptest.NewRequest(http.MethodGet, path, nil), opts...)
}

func (h *harness) postForm(path string, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.serve(req, opts...)
}

func (h *harness) serve(req *http.Request, opts ...reqOpt) *httptest.ResponseRecorder {
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// responseCookie returns the last Set-Cookie for name, or nil.
func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}
