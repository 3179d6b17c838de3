package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/target/cms-admin/internal/adapters/backendapi"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/domain/content"
	"github.com/target/cms-admin/internal/service"
	"golang.org/x/sync/errgroup"
)

const recentContactsLimit = 5

// AdminHandlers serves the signed-in admin pages.
type AdminHandlers struct {
	Catalog  *content.Catalog
	Guard    *service.Guard
	Backend  *backendapi.Client
	Renderer *TemplateRenderer
	Logger   *slog.Logger
	// Now stamps publication dates. Defaults to time.Now.
	Now func() time.Time
}

func (h *AdminHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AdminHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// content returns the content endpoints bound to the request's session, so a
// 401 from any of them ends the session.
func (h *AdminHandlers) content(mgr *service.SessionManager) *backendapi.Content {
	return backendapi.NewContent(h.Backend.WithSession(mgr))
}

// Dashboard shows one stat card per section the user may open, plus the
// latest contact messages when the user handles contacts.
// GET /admin.
func (h *AdminHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	mgr, ok := h.session(w, r)
	if !ok {
		return
	}
	identity := mgr.Identity()
	api := h.content(mgr)

	var (
		stats  content.Stats
		recent []content.Item
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		s, err := api.Stats(ctx)
		if err != nil {
			// Counts are decorative; the dashboard renders with zeros.
			h.logger().WarnContext(ctx, "dashboard stats unavailable", "error", err)
			return nil
		}
		stats = s
		return nil
	})
	if sec, ok := h.Catalog.Lookup("contacts"); ok && mgr.Authorize(sec.Role) {
		g.Go(func() error {
			page, err := api.List(ctx, sec, 1)
			if errors.Is(err, domainauth.ErrSessionExpired) {
				return err
			}
			if err != nil {
				h.logger().WarnContext(ctx, "recent contacts unavailable", "error", err)
				return nil
			}
			recent = page.Items[:min(len(page.Items), recentContactsLimit)]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.handleBackendError(w, r, err)
		return
	}

	data := h.page(r, mgr, PageMeta{Title: "Dashboard", CurrentPage: PageDashboard}).
		With("Cards", h.Catalog.Cards(identity, stats)).
		With("Recent", recent).
		Build()
	h.render(w, r, data)
}

// Section lists the items of one content section.
// GET /admin/{section}?page=N.
func (h *AdminHandlers) Section(w http.ResponseWriter, r *http.Request) {
	sec, ok := h.section(w, r)
	if !ok {
		return
	}
	mgr, ok := h.session(w, r)
	if !ok {
		return
	}

	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}

	items, err := h.content(mgr).List(r.Context(), sec, page)
	if err != nil {
		h.handleBackendError(w, r, err)
		return
	}

	b := h.page(r, mgr, PageMeta{Title: sec.Label, CurrentPage: PageSection}).
		With("Section", sec).
		With("Items", items.Items).
		WithPagination(items)
	if sec.ManagesRoles {
		roles := h.Catalog.AssignableRoles()
		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = string(role)
		}
		b = b.With("AssignableRoles", names)
	}
	data := b.Build()
	h.render(w, r, data)
}

// ItemDelete removes one item and returns to the section list.
// POST /admin/{section}/{id}/delete.
func (h *AdminHandlers) ItemDelete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, NoticeDeleted, func(ctx context.Context, api *backendapi.Content, sec content.Section, id string) error {
		return api.Delete(ctx, sec, id)
	})
}

// ItemStatus moves one item to the submitted status.
// POST /admin/{section}/{id}/status with form field status.
func (h *AdminHandlers) ItemStatus(w http.ResponseWriter, r *http.Request) {
	status := r.PostFormValue("status")
	h.mutate(w, r, NoticeUpdated, func(ctx context.Context, api *backendapi.Content, sec content.Section, id string) error {
		return api.UpdateStatus(ctx, sec, id, status)
	})
}

// ItemPublish publishes a draft with today's date, or unpublishes it.
// POST /admin/{section}/{id}/publish with form field publish=true|false.
func (h *AdminHandlers) ItemPublish(w http.ResponseWriter, r *http.Request) {
	publishedAt := ""
	notice := NoticeUnpublished
	if formBool(r.PostFormValue("publish")) {
		publishedAt = h.now().UTC().Format(time.DateOnly)
		notice = NoticePublished
	}
	h.mutate(w, r, notice, func(ctx context.Context, api *backendapi.Content, sec content.Section, id string) error {
		return api.Publish(ctx, sec, id, publishedAt)
	})
}

// ItemRoles replaces an account's roles, then revalidates the session since
// the account may be the signed-in one.
// POST /admin/{section}/{id}/roles with repeated form field roles.
func (h *AdminHandlers) ItemRoles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.badRequest(w, r, "The submitted form could not be read.")
		return
	}
	roles, ok := h.assignable(r.PostForm["roles"])
	if !ok {
		h.badRequest(w, r, "Unknown role selected.")
		return
	}
	h.mutate(w, r, NoticeRolesUpdated, func(ctx context.Context, api *backendapi.Content, sec content.Section, id string) error {
		if err := api.UpdateRoles(ctx, sec, id, roles); err != nil {
			return err
		}
		if mgr, ok := SessionFromContext(ctx); ok {
			mgr.CheckAuth(ctx)
		}
		return nil
	})
}

// assignable keeps submitted roles in catalog order, dropping duplicates.
// It fails on any label the catalog does not know.
func (h *AdminHandlers) assignable(submitted []string) ([]string, bool) {
	known := h.Catalog.AssignableRoles()
	for _, v := range submitted {
		if !slices.Contains(known, domainauth.Role(v)) {
			return nil, false
		}
	}
	roles := make([]string, 0, len(submitted))
	for _, role := range known {
		if slices.Contains(submitted, string(role)) {
			roles = append(roles, string(role))
		}
	}
	return roles, true
}

type mutation func(ctx context.Context, api *backendapi.Content, sec content.Section, id string) error

func (h *AdminHandlers) mutate(w http.ResponseWriter, r *http.Request, notice string, fn mutation) {
	sec, ok := h.section(w, r)
	if !ok {
		return
	}
	mgr, ok := h.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	if err := fn(r.Context(), h.content(mgr), sec, id); err != nil {
		h.handleBackendError(w, r, err)
		return
	}
	h.logger().InfoContext(r.Context(), "item changed",
		slog.String("section", sec.Slug),
		slog.String("id", id),
		slog.String("change", notice),
	)

	if IsHTMX(r) {
		SetHXTrigger(w, "itemChanged", map[string]string{"section": sec.Slug, "id": id})
	}
	// The change may have altered the signed-in account, so the list is only
	// the target while the session still grants it.
	if outcome, err := h.Guard.InPage(mgr.Snapshot(), sec.Path()); err == nil && Navigate(w, r, outcome) {
		return
	}
	q := url.Values{"notice": {notice}}
	Navigate(w, r, domainauth.RedirectTo(sec.Path()+"?"+q.Encode()))
}

// handleBackendError maps a failed backend call to a response. An expired
// session navigates to login; everything else renders the error page.
func (h *AdminHandlers) handleBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if outcome, handled := h.Guard.OnError(err, r.URL.Path); handled {
		h.logger().InfoContext(r.Context(), "session expired during backend call", "path", r.URL.Path)
		if Navigate(w, r, outcome) {
			return
		}
	}

	status, msg := http.StatusBadGateway, "The content service is unavailable. Please try again."
	var apiErr *backendapi.APIError
	switch {
	case errors.Is(err, backendapi.ErrUnsupportedStatus):
		status, msg = http.StatusBadRequest, "That status is not available for this section."
	case errors.Is(err, backendapi.ErrUnsupportedAction):
		status, msg = http.StatusBadRequest, "That action is not available for this section."
	case errors.As(err, &apiErr):
		if m := apiErr.UserMessage(); m != "" {
			msg = m
		}
		if apiErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
	}
	h.logger().WarnContext(r.Context(), "backend call failed", "path", r.URL.Path, "error", err)
	renderErrorPage(w, r, errorPage{Renderer: h.Renderer, Status: status, Message: msg, HomePath: h.Guard.HomePath()})
}

func (h *AdminHandlers) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	renderErrorPage(w, r, errorPage{
		Renderer: h.Renderer,
		Status:   http.StatusBadRequest,
		Message:  msg,
		HomePath: h.Guard.HomePath(),
	})
}

func (h *AdminHandlers) session(w http.ResponseWriter, r *http.Request) (*service.SessionManager, bool) {
	mgr, ok := SessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "session_missing", Err: errSessionMissing})
	}
	return mgr, ok
}

func (h *AdminHandlers) section(w http.ResponseWriter, r *http.Request) (content.Section, bool) {
	sec, ok := h.Catalog.Lookup(r.PathValue("section"))
	if !ok {
		renderErrorPage(w, r, errorPage{
			Renderer: h.Renderer,
			Status:   http.StatusNotFound,
			Message:  "Page not found.",
			HomePath: h.Guard.HomePath(),
		})
	}
	return sec, ok
}

func (h *AdminHandlers) page(r *http.Request, mgr *service.SessionManager, meta PageMeta) *TemplateDataBuilder {
	identity := mgr.Identity()
	return NewTemplateData(r, meta).WithChrome(identity, h.Catalog.Visible(identity), chromePaths{
		Home:   h.Guard.HomePath(),
		Logout: h.Guard.LogoutPath(),
	})
}

func (h *AdminHandlers) render(w http.ResponseWriter, r *http.Request, data map[string]any) {
	if err := h.Renderer.Render(w, r, data); err != nil {
		h.logger().ErrorContext(r.Context(), "render page failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func redirectHome(g *service.Guard) domainauth.Outcome {
	return domainauth.RedirectTo(g.HomePath())
}
