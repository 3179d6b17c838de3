package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/target/cms-admin/internal/domain/content"
)

var (
	// ErrUnsupportedStatus is returned when a section does not accept the requested status.
	ErrUnsupportedStatus = errors.New("status not supported for section")
	// ErrUnsupportedAction is returned for an item action the section does not offer.
	ErrUnsupportedAction = errors.New("action not supported for section")
)

// Content reads and mutates section items through a Caller.
type Content struct {
	caller    Caller
	statsPath string
}

// NewContent wires content endpoints to caller.
func NewContent(caller Caller) *Content {
	return &Content{caller: caller, statsPath: "/stats"}
}

// Stats returns per-section counts. The stats endpoint is public.
func (c *Content) Stats(ctx context.Context) (content.Stats, error) {
	var stats content.Stats
	if err := c.caller.Call(ctx, Get(c.statsPath).Public(), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// List returns one page of a section. Array responses become a single page.
func (c *Content) List(ctx context.Context, sec content.Section, page int) (content.Page, error) {
	q := url.Values{}
	if sec.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(sec.PerPage))
	}
	if sec.Paged && page > 1 {
		q.Set("page", strconv.Itoa(page))
	}

	req := Get(sec.ListPath).WithQuery(q)
	if sec.PublicList {
		req = req.Public()
	}

	var raw json.RawMessage
	if err := c.caller.Call(ctx, req, &raw); err != nil {
		return content.Page{}, err
	}
	return decodePage(raw)
}

func decodePage(raw json.RawMessage) (content.Page, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return content.Page{CurrentPage: 1, LastPage: 1}, nil
	}
	if trimmed[0] == '[' {
		var items []content.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return content.Page{}, fmt.Errorf("decode item list: %w", err)
		}
		return content.Page{Items: items, CurrentPage: 1, LastPage: 1, PerPage: len(items), Total: len(items)}, nil
	}

	var p content.Page
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return content.Page{}, fmt.Errorf("decode item page: %w", err)
	}
	if p.CurrentPage == 0 {
		p.CurrentPage = 1
	}
	if p.LastPage < p.CurrentPage {
		p.LastPage = p.CurrentPage
	}
	if p.Total == 0 {
		p.Total = len(p.Items)
	}
	return p, nil
}

// Delete removes one item of a section.
func (c *Content) Delete(ctx context.Context, sec content.Section, id string) error {
	return c.caller.Call(ctx, Delete(sec.ItemURL(id)), nil)
}

// UpdateStatus moves an item to status.
func (c *Content) UpdateStatus(ctx context.Context, sec content.Section, id, status string) error {
	if !sec.SupportsStatus(status) {
		return fmt.Errorf("%w: %s/%s", ErrUnsupportedStatus, sec.Slug, status)
	}
	body := map[string]string{"status": status}
	return c.caller.Call(ctx, PutJSON(sec.ItemURL(id), body), nil)
}

// Publish sets an item's publication date. An empty date unpublishes it.
// The backend only accepts this field through a form update.
func (c *Content) Publish(ctx context.Context, sec content.Section, id, publishedAt string) error {
	if !sec.Publishable {
		return fmt.Errorf("%w: %s/publish", ErrUnsupportedAction, sec.Slug)
	}
	form := (&Form{}).Add("published_at", publishedAt)
	return c.caller.Call(ctx, PutForm(sec.ItemURL(id), form), nil)
}

// UpdateRoles replaces the role labels of an admin account.
func (c *Content) UpdateRoles(ctx context.Context, sec content.Section, id string, roles []string) error {
	if !sec.ManagesRoles {
		return fmt.Errorf("%w: %s/roles", ErrUnsupportedAction, sec.Slug)
	}
	if roles == nil {
		roles = []string{}
	}
	body := map[string][]string{"roles": roles}
	return c.caller.Call(ctx, PutJSON(sec.ItemURL(id)+"/roles", body), nil)
}
