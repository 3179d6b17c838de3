package backendapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/domain/content"
)

func section(t *testing.T, slug string) content.Section {
	t.Helper()
	c := content.NewCatalog(domainauth.RoleSuperAdmin, content.DefaultSections(domainauth.RoleSuperAdmin))
	s, ok := c.Lookup(slug)
	require.True(t, ok)
	return s
}

func TestContent_ListArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "title": "Well"}, {"id": 2, "title": "School"}})
	})

	page, err := NewContent(c).List(context.Background(), section(t, "projects"), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Well", page.Items[0].Title())
	assert.Equal(t, 1, page.CurrentPage)
	assert.False(t, page.HasNext())
}

func TestContent_ListPaginated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data":         []map[string]any{{"id": 13, "title": "Gala"}},
			"current_page": 2, "last_page": 3, "per_page": 12, "total": 30,
		})
	})

	page, err := NewContent(c).List(context.Background(), section(t, "gallery"), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 30, page.Total)
	assert.True(t, page.HasNext())
}

func TestContent_AuthenticatedListGoesThroughCaller(t *testing.T) {
	var seen Request
	caller := CallerFunc(func(_ context.Context, req Request, out any) error {
		seen = req
		return json.Unmarshal([]byte(`{"data":[],"current_page":1,"last_page":1}`), out)
	})

	_, err := NewContent(caller).List(context.Background(), section(t, "contacts"), 1)
	require.NoError(t, err)
	assert.True(t, seen.RequiresAuth)
	assert.Equal(t, "/admin/contacts", seen.Path)
	assert.Equal(t, "100", seen.Query.Get("per_page"))
}

func TestContent_SessionExpiryPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
	})
	caller := CallerFunc(func(ctx context.Context, req Request, out any) error {
		return c.Do(ctx, req.WithCredential("stale"), out)
	})

	_, err := NewContent(caller).List(context.Background(), section(t, "testimonials"), 1)
	assert.ErrorIs(t, err, domainauth.ErrSessionExpired)
}

func TestContent_DeleteAndStatus(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "read", body["status"])
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	})
	caller := CallerFunc(func(ctx context.Context, req Request, out any) error {
		return c.Do(ctx, req.WithCredential("tok"), out)
	})
	svc := NewContent(caller)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, section(t, "news"), "5"))
	require.NoError(t, svc.UpdateStatus(ctx, section(t, "contacts"), "9", "read"))
	err := svc.UpdateStatus(ctx, section(t, "news"), "5", "read")
	assert.ErrorIs(t, err, ErrUnsupportedStatus)

	assert.Equal(t, []string{"DELETE /api/v1/admin/news/5", "PUT /api/v1/admin/contacts/9"}, calls)
}

func TestContent_PublishSendsFormUpdate(t *testing.T) {
	var method, override, publishedAt, auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/news/4", r.URL.Path)
		method, auth = r.Method, r.Header.Get("Authorization")
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		override = r.FormValue("_method")
		publishedAt = r.FormValue("published_at")
		writeJSON(w, http.StatusOK, map[string]any{"message": "updated"})
	})
	caller := CallerFunc(func(ctx context.Context, req Request, out any) error {
		return c.Do(ctx, req.WithCredential("tok"), out)
	})
	svc := NewContent(caller)

	require.NoError(t, svc.Publish(context.Background(), section(t, "news"), "4", "2025-06-01"))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, http.MethodPut, override)
	assert.Equal(t, "2025-06-01", publishedAt)
	assert.Equal(t, "Bearer tok", auth)

	err := svc.Publish(context.Background(), section(t, "gallery"), "4", "2025-06-01")
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestContent_UpdateRoles(t *testing.T) {
	var got map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/admin/users/2/roles", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"message": "Roles updated"})
	})
	svc := NewContent(c.WithSession(&recordingRunner{credential: "tok"}))
	ctx := context.Background()

	require.NoError(t, svc.UpdateRoles(ctx, section(t, "users"), "2", []string{"news", "contacts"}))
	assert.Equal(t, []string{"news", "contacts"}, got["roles"])

	require.NoError(t, svc.UpdateRoles(ctx, section(t, "users"), "2", nil))
	assert.NotNil(t, got["roles"], "an empty role set is sent as [] rather than null")
	assert.Empty(t, got["roles"])

	err := svc.UpdateRoles(ctx, section(t, "news"), "2", []string{"news"})
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestContent_Stats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"news": 3, "contacts": 8})
	})
	stats, err := NewContent(c).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, stats["contacts"])
}

type recordingRunner struct {
	credential string
	expired    bool
}

func (r *recordingRunner) Call(ctx context.Context, fn func(context.Context, string) error) error {
	err := fn(ctx, r.credential)
	if errors.Is(err, domainauth.ErrSessionExpired) {
		r.expired = true
	}
	return err
}

func TestClient_WithSession(t *testing.T) {
	var gotAuth []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		if r.URL.Path == "/api/v1/admin/users" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{})
	})
	runner := &recordingRunner{credential: "tok"}
	svc := NewContent(c.WithSession(runner))
	ctx := context.Background()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	_, err = svc.List(ctx, section(t, "users"), 1)
	assert.ErrorIs(t, err, domainauth.ErrSessionExpired)

	assert.Equal(t, []string{"", "Bearer tok"}, gotAuth)
	assert.True(t, runner.expired)
}
