package httpx

import (
	"log/slog"
	"net/http"
)

// errorPage describes a standalone error response.
type errorPage struct {
	Renderer *TemplateRenderer
	Status   int
	Message  string
	HomePath string
}

// renderErrorPage renders the error template, falling back to plain text when
// no renderer is configured or rendering fails.
func renderErrorPage(w http.ResponseWriter, r *http.Request, p errorPage) {
	if p.Status == 0 {
		p.Status = http.StatusInternalServerError
	}
	if p.Message == "" {
		p.Message = http.StatusText(p.Status)
	}
	if p.Renderer == nil {
		http.Error(w, p.Message, p.Status)
		return
	}

	data := NewTemplateData(r, PageMeta{Title: http.StatusText(p.Status), CurrentPage: PageError}).
		With("Status", p.Status).
		With("StatusText", http.StatusText(p.Status)).
		With("Message", p.Message).
		With("HomePath", p.HomePath).
		Build()
	if err := p.Renderer.RenderError(withStatus(w, p.Status), r, data); err != nil {
		slog.ErrorContext(r.Context(), "render error page failed", "error", err)
		http.Error(w, p.Message, p.Status)
	}
}
