package viewmodel

// User represents the signed-in identity exposed to templates.
type User struct {
	Name  string
	Email string
	Roles []string
}

// NavItem is one sidebar entry.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title       string
	CurrentPage string
	User        *User
	Nav         []NavItem
	HomePath    string
	LogoutPath  string
	// Notice is a one-line confirmation shown above the content.
	Notice string
}

// Authenticated reports whether the chrome should render the signed-in frame.
func (l *Layout) Authenticated() bool { return l != nil && l.User != nil }
