package backendapi

import (
	"context"
	"net/http"
	"net/url"
)

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   *Form
	// RequiresAuth attaches Credential and enables session-expiry detection.
	RequiresAuth bool
	Credential   string
}

// Public marks the request as not needing a credential.
func (r Request) Public() Request {
	r.RequiresAuth = false
	r.Credential = ""
	return r
}

// WithQuery returns a copy carrying q.
func (r Request) WithQuery(q url.Values) Request {
	r.Query = q
	return r
}

// WithCredential returns a copy authenticated with credential.
func (r Request) WithCredential(credential string) Request {
	r.Credential = credential
	return r
}

// Get builds an authenticated GET.
func Get(path string) Request {
	return Request{Method: http.MethodGet, Path: path, RequiresAuth: true}
}

// PostJSON builds an authenticated POST with a JSON body.
func PostJSON(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, JSON: body, RequiresAuth: true}
}

// PutJSON builds an authenticated PUT with a JSON body.
func PutJSON(path string, body any) Request {
	return Request{Method: http.MethodPut, Path: path, JSON: body, RequiresAuth: true}
}

// PutForm builds a multipart update. The backend framework cannot parse
// multipart PUT bodies, so it is sent as POST with a _method=PUT override.
func PutForm(path string, form *Form) Request {
	if form == nil {
		form = &Form{}
	}
	f := form.clone()
	f.Set("_method", http.MethodPut)
	return Request{Method: http.MethodPost, Path: path, Form: f, RequiresAuth: true}
}

// Delete builds an authenticated DELETE.
func Delete(path string) Request {
	return Request{Method: http.MethodDelete, Path: path, RequiresAuth: true}
}

type formField struct {
	name  string
	value string
}

// Form is an ordered multipart body.
type Form struct {
	fields []formField
}

// Add appends a field value.
func (f *Form) Add(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// Set replaces every value of name.
func (f *Form) Set(name, value string) *Form {
	kept := f.fields[:0]
	for _, fld := range f.fields {
		if fld.name != name {
			kept = append(kept, fld)
		}
	}
	f.fields = append(kept, formField{name: name, value: value})
	return f
}

func (f *Form) clone() *Form {
	return &Form{fields: append([]formField(nil), f.fields...)}
}

// Caller executes backend requests. *Client satisfies it directly; the
// session manager satisfies it by injecting the current credential.
type Caller interface {
	Call(ctx context.Context, req Request, out any) error
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, req Request, out any) error

func (f CallerFunc) Call(ctx context.Context, req Request, out any) error { return f(ctx, req, out) }

// Call is Do, so a bare Client can serve public content reads.
func (c *Client) Call(ctx context.Context, req Request, out any) error { return c.Do(ctx, req, out) }

// CredentialRunner runs work with the current credential and reacts to session expiry.
type CredentialRunner interface {
	Call(ctx context.Context, fn func(ctx context.Context, credential string) error) error
}

// WithSession returns a Caller that executes requests on behalf of session.
func (c *Client) WithSession(session CredentialRunner) Caller {
	return CallerFunc(func(ctx context.Context, req Request, out any) error {
		return session.Call(ctx, func(ctx context.Context, credential string) error {
			if req.RequiresAuth {
				req = req.WithCredential(credential)
			}
			return c.Do(ctx, req, out)
		})
	})
}
