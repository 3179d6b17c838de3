// Package backendapi is the HTTP client for the external CMS backend.
//
// Every call goes through Client.Do, which attaches the bearer credential,
// maps 401 on authenticated requests to domainauth.ErrSessionExpired and turns
// non-2xx answers into *APIError carrying a human-readable message.
package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/cms-admin/internal/domain/auth"
	"golang.org/x/oauth2"
)

const (
	// DefaultMessageExpr selects the message field of a backend error body.
	DefaultMessageExpr = "message"

	// InvalidJSONMessage is reported when the backend answers with a body that is not JSON.
	InvalidJSONMessage = "Server returned invalid JSON. This may be due to binary data encoding issues. Check backend logs."

	maxResponseBytes = 10 << 20
)

// APIError is a non-2xx or undecodable backend answer.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// UserMessage is the text shown to the user for this failure.
func (e *APIError) UserMessage() string { return e.Message }

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout     time.Duration
	MessageExpr string
	HTTPClient  *http.Client

	LoginPath  string
	MePath     string
	LogoutPath string
}

// Client talks to the CMS backend.
type Client struct {
	base        *url.URL
	hc          *http.Client
	messageExpr string

	loginPath  string
	mePath     string
	logoutPath string
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url must be http(s): %q", raw)
	}

	expr := strings.TrimSpace(cfg.MessageExpr)
	if expr == "" {
		expr = DefaultMessageExpr
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile error message expression: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		base:        base,
		hc:          hc,
		messageExpr: expr,
		loginPath:   fallbackString(cfg.LoginPath, "/admin/login"),
		mePath:      fallbackString(cfg.MePath, "/admin/me"),
		logoutPath:  fallbackString(cfg.LogoutPath, "/admin/logout"),
	}, nil
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// Do executes req and decodes a successful JSON answer into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && req.RequiresAuth {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return domainauth.ErrSessionExpired
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read backend response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return &APIError{Status: resp.StatusCode, Message: InvalidJSONMessage}
	}

	if !ok {
		return &APIError{Status: resp.StatusCode, Message: c.errorMessage(doc, resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

func (c *Client) errorMessage(doc any, status int) string {
	if v, err := jmespath.Search(c.messageExpr, doc); err == nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create backend request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.RequiresAuth && req.Credential != "" {
		tok := &oauth2.Token{AccessToken: req.Credential, TokenType: "Bearer"}
		tok.SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.Form != nil:
		return encodeMultipart(req.Form)
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode backend request: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	default:
		return nil, "", nil
	}
}

func encodeMultipart(form *Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range form.fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f.name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
