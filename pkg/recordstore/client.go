// Package recordstore talks to the remote lead record store. The store is
// the single source of truth; everything here is a thin, well-typed
// wrapper over its JSON HTTP API.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/models"
)

// Store is the record store contract the pipeline engine consumes.
// Tests substitute a fake; Client is the HTTP implementation.
type Store interface {
	ListLeads(ctx context.Context, q models.QueryDescriptor, page, limit int) (*models.LeadPage, error)
	UpdateLead(ctx context.Context, id string, patch map[string]any) (*models.Lead, error)
	AssignAgent(ctx context.Context, id, agentID string) (*models.Lead, error)
	AutoAssign(ctx context.Context, id, method, agencyID string) error
	Rescore(ctx context.Context, id string) error
	DeleteLead(ctx context.Context, id string) error
	BulkCreate(ctx context.Context, rows []models.ImportRow) (*models.BulkCreateResult, error)
}

// Observer receives the operation name and duration of every completed
// store call, whatever its outcome.
type Observer func(operation string, d time.Duration)

// Client is the HTTP record store client
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	observe  Observer
}

// NewClient creates a record store client
func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http:     &http.Client{Timeout: timeout},
	}
}

// WithObserver registers a call-duration callback and returns the client
func (c *Client) WithObserver(fn Observer) *Client {
	c.observe = fn
	return c
}

// ListLeads fetches one page of leads matching the descriptor's filters
func (c *Client) ListLeads(ctx context.Context, q models.QueryDescriptor, page, limit int) (*models.LeadPage, error) {
	endpoint := fmt.Sprintf("%s/leads?%s", c.baseURL, q.Values(page, limit).Encode())

	var result models.LeadPage
	if err := c.do(ctx, "list_leads", http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateLead applies a partial field set and returns the authoritative
// merged record.
func (c *Client) UpdateLead(ctx context.Context, id string, patch map[string]any) (*models.Lead, error) {
	endpoint := fmt.Sprintf("%s/leads/%s", c.baseURL, url.PathEscape(id))

	var result struct {
		Lead models.Lead `json:"lead"`
	}
	if err := c.do(ctx, "update_lead", http.MethodPut, endpoint, patch, &result); err != nil {
		return nil, err
	}
	return &result.Lead, nil
}

// AssignAgent sets the owning agent and returns the merged record
func (c *Client) AssignAgent(ctx context.Context, id, agentID string) (*models.Lead, error) {
	endpoint := fmt.Sprintf("%s/leads/%s/assign", c.baseURL, url.PathEscape(id))

	body := map[string]any{"assignedAgent": agentID}
	var result struct {
		Lead models.Lead `json:"lead"`
	}
	if err := c.do(ctx, "assign_agent", http.MethodPut, endpoint, body, &result); err != nil {
		return nil, err
	}
	return &result.Lead, nil
}

// AutoAssign asks the store to pick an agent within the given agency.
// The assignment algorithm itself lives server-side.
func (c *Client) AutoAssign(ctx context.Context, id, method, agencyID string) error {
	endpoint := fmt.Sprintf("%s/leads/%s/auto-assign", c.baseURL, url.PathEscape(id))

	body := map[string]any{
		"assignmentMethod": method,
		"agencyId":         agencyID,
	}
	return c.do(ctx, "auto_assign", http.MethodPost, endpoint, body, nil)
}

// Rescore triggers server-side score recomputation
func (c *Client) Rescore(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/leads/%s/re-score", c.baseURL, url.PathEscape(id))
	return c.do(ctx, "rescore", http.MethodPost, endpoint, nil, nil)
}

// DeleteLead removes a lead. A permission-denied refusal surfaces as a
// distinct forbidden error, not the generic failure.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/leads/%s", c.baseURL, url.PathEscape(id))
	return c.do(ctx, "delete_lead", http.MethodDelete, endpoint, nil, nil)
}

// BulkCreate submits normalized import rows as one batch creation call.
// The store may accept some rows and reject others.
func (c *Client) BulkCreate(ctx context.Context, rows []models.ImportRow) (*models.BulkCreateResult, error) {
	endpoint := fmt.Sprintf("%s/leads/bulk", c.baseURL)

	body := map[string]any{"leads": rows}
	var result models.BulkCreateResult
	if err := c.do(ctx, "bulk_create", http.MethodPost, endpoint, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs one request and maps non-2xx statuses onto the domain
// error taxonomy.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body, out any) error {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(op, time.Since(start)) }()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.NewInternalError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domain.NewInternalError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewUpstreamError("record store unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.NewUpstreamError("invalid record store response", err)
		}
		return nil
	}

	message := remoteMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewForbiddenError("")
	case http.StatusNotFound:
		return domain.NewNotFoundError("lead")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message == "" {
			message = "record store rejected the request"
		}
		return domain.NewValidationError(message)
	default:
		return domain.NewUpstreamError(
			fmt.Sprintf("record store returned %d", resp.StatusCode), nil)
	}
}

// remoteMessage extracts a best-effort message from an error body
func remoteMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
