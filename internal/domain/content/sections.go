package content

// Package content describes the admin content areas and the shapes the backend
// returns for them. The backend owns the data; this package only knows where it lives.

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
)

// Section is one manageable content area of the admin console.
type Section struct {
	Slug  string
	Label string
	Role  domainauth.Role
	// ListPath is the backend endpoint returning the section's items.
	ListPath string
	// PerPage is appended as per_page when positive.
	PerPage int
	// Paged sections accept a page query parameter.
	Paged bool
	// PublicList sections are listed without a credential.
	PublicList bool
	// ItemPath is the prefix for item mutations, e.g. /admin/news -> /admin/news/{id}.
	ItemPath string
	// Statuses lists the values accepted by the status endpoint. Empty disables it.
	Statuses []string
	// Publishable sections toggle published_at through a form update of the item.
	Publishable bool
	// ManagesRoles marks the section whose items are admin accounts with roles.
	ManagesRoles bool
	// Root is the console route tree the section is mounted under. Empty means /admin.
	Root string
}

// Path is the admin console route for the section.
func (s Section) Path() string {
	root := s.Root
	if root == "" {
		root = "/admin"
	}
	return root + "/" + s.Slug
}

// ItemURL returns the backend path of a single item.
func (s Section) ItemURL(id string) string { return s.ItemPath + "/" + id }

// SupportsStatus reports whether items can be moved to status.
func (s Section) SupportsStatus(status string) bool {
	for _, v := range s.Statuses {
		if v == status {
			return true
		}
	}
	return false
}

// DefaultSections returns the content areas the backend exposes, in menu order.
func DefaultSections(super domainauth.Role) []Section {
	if super == "" {
		super = domainauth.RoleSuperAdmin
	}
	return []Section{
		{
			Slug: "news", Label: "News Articles", Role: domainauth.RoleNews,
			ListPath: "/news", PerPage: 100, PublicList: true, ItemPath: "/admin/news",
			Publishable: true,
		},
		{
			Slug: "projects", Label: "Projects", Role: domainauth.RoleProjects,
			ListPath: "/projects", PublicList: true, ItemPath: "/admin/projects",
		},
		{
			Slug: "gallery", Label: "Gallery Items", Role: domainauth.RoleGallery,
			ListPath: "/gallery", PerPage: 12, Paged: true, PublicList: true, ItemPath: "/admin/gallery",
		},
		{
			Slug: "testimonials", Label: "Testimonials", Role: domainauth.RoleTestimonials,
			ListPath: "/admin/testimonials/all", ItemPath: "/admin/testimonials",
			Statuses: []string{"pending", "approved", "rejected"},
		},
		{
			Slug: "contacts", Label: "Contact Messages", Role: domainauth.RoleContacts,
			ListPath: "/admin/contacts", PerPage: 100, ItemPath: "/admin/contacts",
			Statuses: []string{"new", "read", "replied", "archived"},
		},
		{
			Slug: "users", Label: "Users", Role: super,
			ListPath: "/admin/users", ItemPath: "/admin/users",
			ManagesRoles: true,
		},
	}
}

// Catalog indexes sections by slug.
type Catalog struct {
	ordered []Section
	bySlug  map[string]Section
	super   domainauth.Role
}

// NewCatalog builds a catalog. Later duplicates of a slug are ignored.
func NewCatalog(super domainauth.Role, sections []Section) *Catalog {
	c := &Catalog{bySlug: make(map[string]Section, len(sections)), super: super}
	for _, s := range sections {
		if _, dup := c.bySlug[s.Slug]; dup {
			continue
		}
		c.bySlug[s.Slug] = s
		c.ordered = append(c.ordered, s)
	}
	return c
}

// Mount moves every section under root, e.g. /console.
func (c *Catalog) Mount(root string) *Catalog {
	root = strings.TrimSuffix(root, "/")
	for i := range c.ordered {
		c.ordered[i].Root = root
		c.bySlug[c.ordered[i].Slug] = c.ordered[i]
	}
	return c
}

// Lookup returns the section with the given slug.
func (c *Catalog) Lookup(slug string) (Section, bool) {
	s, ok := c.bySlug[slug]
	return s, ok
}

// All returns the sections in menu order.
func (c *Catalog) All() []Section {
	return append([]Section(nil), c.ordered...)
}

// Visible returns the sections identity may open.
func (c *Catalog) Visible(identity *domainauth.Identity) []Section {
	var out []Section
	for _, s := range c.ordered {
		if domainauth.Authorize(identity, s.Role, c.super) {
			out = append(out, s)
		}
	}
	return out
}

// AssignableRoles lists the roles an account can be granted: every section
// role once, in menu order, then the super role.
func (c *Catalog) AssignableRoles() []domainauth.Role {
	var out []domainauth.Role
	for _, s := range c.ordered {
		if s.Role != "" && s.Role != c.super && !slices.Contains(out, s.Role) {
			out = append(out, s.Role)
		}
	}
	return append(out, c.super)
}

// Policy maps every section route to its required role.
func (c *Catalog) Policy() domainauth.Policy {
	routes := make([]domainauth.RouteRole, 0, len(c.ordered))
	for _, s := range c.ordered {
		routes = append(routes, domainauth.RouteRole{Prefix: s.Path(), Role: s.Role})
	}
	return domainauth.Policy{Routes: routes, Super: c.super}
}

// Item is one backend record. Fields vary per section, so it stays untyped.
type Item map[string]any

// ID returns the record identifier as a string.
func (i Item) ID() string {
	switch v := i["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Title picks the most descriptive text field of the record.
func (i Item) Title() string {
	for _, key := range []string{"title", "name", "subject", "event_name", "email"} {
		if s, ok := i[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return "#" + i.ID()
}

// Status returns the record's workflow status, if any.
func (i Item) Status() string {
	s, _ := i["status"].(string)
	return s
}

// PublishedAt returns the publication date, empty while the record is a draft.
func (i Item) PublishedAt() string {
	s, _ := i["published_at"].(string)
	return s
}

// Roles returns the role labels of an account record.
func (i Item) Roles() []string {
	raw, _ := i["roles"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Page is a list response normalized across array and paginated shapes.
type Page struct {
	Items       []Item `json:"data"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool { return p.CurrentPage < p.LastPage }

// Stats holds per-section item counts from the backend's stats endpoint.
type Stats map[string]int

// Card is one dashboard tile.
type Card struct {
	Section Section
	Count   int
}

// Cards returns the dashboard tiles identity may see.
func (c *Catalog) Cards(identity *domainauth.Identity, stats Stats) []Card {
	var cards []Card
	for _, s := range c.Visible(identity) {
		if s.Role == c.super {
			continue
		}
		cards = append(cards, Card{Section: s, Count: stats[s.Slug]})
	}
	return cards
}
