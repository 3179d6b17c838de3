package httpx

// CurrentPage constants define the page identifiers used in templates and navigation.
const (
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageSection   = "section"
	PageError     = "error"
)

// Template paths used for loading templates from disk in dev mode.
const (
	TemplatePathFromRoot = "frontend/templates"
	StaticPathFromRoot   = "frontend/static"
)

// Notices shown after a mutation redirects back to a list.
const (
	NoticeDeleted      = "deleted"
	NoticeUpdated      = "updated"
	NoticePublished    = "published"
	NoticeUnpublished  = "unpublished"
	NoticeRolesUpdated = "roles"
)

//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageLogin:     "login-content",
	PageDashboard: "dashboard-content",
	PageSection:   "section-content",
	PageError:     "error-content",
}

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to dashboard-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "dashboard-content"
}

func noticeText(code string) string {
	switch code {
	case NoticeDeleted:
		return "Item deleted."
	case NoticeUpdated:
		return "Status updated."
	case NoticePublished:
		return "Article published."
	case NoticeUnpublished:
		return "Article unpublished."
	case NoticeRolesUpdated:
		return "Roles updated."
	default:
		return ""
	}
}
