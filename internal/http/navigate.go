package httpx

import (
	"net/http"

	domainauth "github.com/target/cms-admin/internal/domain/auth"
)

// Navigate performs a navigation outcome. It reports whether a response was
// written; a Continue outcome writes nothing.
//
// htmx requests get an Hx-Redirect header so the whole page moves instead of
// the redirect target being swapped into a fragment.
func Navigate(w http.ResponseWriter, r *http.Request, outcome domainauth.Outcome) bool {
	if !outcome.IsRedirect() {
		return false
	}
	if IsHTMX(r) {
		SetHXRedirect(w, outcome.Location)
		w.WriteHeader(http.StatusOK)
		return true
	}
	code := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	http.Redirect(w, r, outcome.Location, code)
	return true
}
