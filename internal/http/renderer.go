package httpx

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"

	httpassets "github.com/target/cms-admin/internal/http/assets"
	assetfuncs "github.com/target/cms-admin/internal/http/templates/assets"
	corefuncs "github.com/target/cms-admin/internal/http/templates/core"
)

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS                     // Filesystem containing templates (required)
	Resolver   *httpassets.AssetResolver // Asset resolver for hashed filenames (optional)
	Logger     *slog.Logger
}

// NewTemplateRenderer constructs a renderer by parsing templates from the provided config.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var t *template.Template
	funcs := corefuncs.Funcs(corefuncs.Deps{Template: &t, ContentTemplateFor: ContentTemplateFor})
	maps.Copy(funcs, assetfuncs.Funcs(assetfuncs.Options{Resolver: cfg.Resolver}))

	var err error
	t, err = template.New("root").Funcs(funcs).ParseFS(cfg.TemplateFS, "*.tmpl", "pages/*.tmpl")
	if err != nil {
		logger.Error("template parsing failed",
			slog.Any("error", err),
			slog.String("phase", "initialization"),
		)
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// RenderFull renders the full page (layout + page content).
func (r *TemplateRenderer) RenderFull(w http.ResponseWriter, _ *http.Request, data any) error {
	return r.renderTemplate(w, "layout", data)
}

// RenderPartial renders only the main content area.
func (r *TemplateRenderer) RenderPartial(w http.ResponseWriter, _ *http.Request, data any) error {
	return r.renderTemplate(w, "content", data)
}

// RenderError renders a standalone error page.
func (r *TemplateRenderer) RenderError(w http.ResponseWriter, _ *http.Request, data any) error {
	return r.renderTemplate(w, "error-layout", data)
}

// Render picks the full page or the content fragment for the request.
func (r *TemplateRenderer) Render(w http.ResponseWriter, req *http.Request, data any) error {
	if WantsPartial(req) {
		return r.RenderPartial(w, req, data)
	}
	return r.RenderFull(w, req, data)
}

func (r *TemplateRenderer) renderTemplate(w http.ResponseWriter, templateName string, data any) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, templateName, data); err != nil {
		r.logger.Error("template execution failed",
			slog.String("template", templateName),
			slog.Any("error", err),
		)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// statusWriter applies a status code on the first body write, so renderers
// that only write bodies can still answer with a non-200 status.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func withStatus(w http.ResponseWriter, status int) http.ResponseWriter {
	if status == 0 || status == http.StatusOK {
		return w
	}
	return &statusWriter{ResponseWriter: w, status: status}
}

func (s *statusWriter) WriteHeader(code int) {
	if s.written {
		return
	}
	s.written = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if !s.written {
		s.WriteHeader(s.status)
	}
	return s.ResponseWriter.Write(b)
}
