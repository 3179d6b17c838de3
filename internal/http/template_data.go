package httpx

import (
	"net/http"
	"net/url"
	"strconv"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"github.com/target/cms-admin/internal/domain/content"
	"github.com/target/cms-admin/internal/http/ui/viewmodel"
)

// PageMeta names the page being rendered.
type PageMeta struct {
	Title       string
	CurrentPage string
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
	r    *http.Request
}

// NewTemplateData creates a builder whose Layout carries meta and the request's notice.
func NewTemplateData(r *http.Request, meta PageMeta) *TemplateDataBuilder {
	layout := &viewmodel.Layout{
		Title:       meta.Title,
		CurrentPage: meta.CurrentPage,
		Notice:      noticeText(r.URL.Query().Get("notice")),
	}
	return &TemplateDataBuilder{
		data: map[string]any{"Layout": layout},
		r:    r,
	}
}

// WithChrome fills the signed-in frame: user, role-filtered navigation and paths.
func (b *TemplateDataBuilder) WithChrome(identity *domainauth.Identity, sections []content.Section, paths chromePaths) *TemplateDataBuilder {
	layout := b.layout()
	layout.HomePath = paths.Home
	layout.LogoutPath = paths.Logout
	if identity == nil {
		return b
	}
	layout.User = &viewmodel.User{Name: identity.Name, Email: identity.Email, Roles: identity.Roles}

	nav := make([]viewmodel.NavItem, 0, len(sections)+1)
	nav = append(nav, viewmodel.NavItem{Label: "Dashboard", Path: paths.Home, Active: b.r.URL.Path == paths.Home})
	for _, s := range sections {
		nav = append(nav, viewmodel.NavItem{
			Label:  s.Label,
			Path:   s.Path(),
			Active: domainauth.HasPathPrefix(b.r.URL.Path, s.Path()),
		})
	}
	layout.Nav = nav
	return b
}

// WithPagination adds pagination metadata and the neighbouring page URLs.
func (b *TemplateDataBuilder) WithPagination(p content.Page) *TemplateDataBuilder {
	pg := viewmodel.Pagination{
		Page:     p.CurrentPage,
		LastPage: p.LastPage,
		Total:    p.Total,
		HasPrev:  p.CurrentPage > 1,
		HasNext:  p.HasNext(),
	}
	if pg.HasPrev {
		pg.PrevURL = pageURL(b.r.URL, p.CurrentPage-1)
	}
	if pg.HasNext {
		pg.NextURL = pageURL(b.r.URL, p.CurrentPage+1)
	}
	b.data["Pagination"] = pg
	return b
}

// With sets an arbitrary key.
func (b *TemplateDataBuilder) With(key string, value any) *TemplateDataBuilder {
	b.data[key] = value
	return b
}

// Build returns the assembled data map.
func (b *TemplateDataBuilder) Build() map[string]any { return b.data }

func (b *TemplateDataBuilder) layout() *viewmodel.Layout {
	return b.data["Layout"].(*viewmodel.Layout)
}

type chromePaths struct {
	Home   string
	Logout string
}

func pageURL(base *url.URL, page int) string {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Path: base.Path, RawQuery: q.Encode()}
	return u.String()
}
