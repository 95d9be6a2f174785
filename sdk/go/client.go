package signlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Signline HTTP API client. Hosts authenticate with
// APIKey; signer frontends use BearerToken.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Session represents the API session model (partial).
type Session struct {
	ID            string `json:"id"`
	SignerID      string `json:"signer_id"`
	SignerName    string `json:"signer_name"`
	Step          string `json:"step"`
	Consent       bool   `json:"consent"`
	DocumentIndex int    `json:"document_index"`
	FieldIndex    int    `json:"field_index"`
}

// Document describes one document in a session create request.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	ContentURL string `json:"content_url,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// FieldState is the completion record for one field.
type FieldState struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	FieldID    string  `json:"field_id"`
	Type       string  `json:"field_type"`
	Page       int     `json:"page_number"`
	Label      string  `json:"label"`
	Required   bool    `json:"required"`
	Completed  bool    `json:"completed"`
	Value      *string `json:"value,omitempty"`
}

// SessionState is the full host-visible session view.
type SessionState struct {
	Session         Session      `json:"session"`
	Fields          []FieldState `json:"fields"`
	CompletedCount  int          `json:"completed_count"`
	RequiredCount   int          `json:"required_count"`
	ProgressPercent int          `json:"progress_percent"`
	ReviewReady     bool         `json:"review_ready"`
	CurrentFieldID  string       `json:"current_field_id"`
}

// FinishResult is the outcome of a finish call.
type FinishResult struct {
	Status    string            `json:"status"`
	Session   Session           `json:"session"`
	Submitted []string          `json:"submitted,omitempty"`
	Skipped   []string          `json:"skipped,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateSession starts a signing session for a signer.
func (c *Client) CreateSession(ctx context.Context, signerID, signerName string, docs []Document) (Session, []string, error) {
	body := map[string]any{
		"signer_id":   signerID,
		"signer_name": signerName,
		"documents":   docs,
	}
	var resp struct {
		Session  Session  `json:"session"`
		Degraded []string `json:"degraded_documents"`
	}
	err := c.do(ctx, http.MethodPost, "v0/sessions", body, &resp)
	return resp.Session, resp.Degraded, err
}

// GetSession returns the full session state.
func (c *Client) GetSession(ctx context.Context, id string) (SessionState, error) {
	var resp SessionState
	err := c.do(ctx, http.MethodGet, c.sessionPath(id, ""), nil, &resp)
	return resp, err
}

// Start leaves landing, going to adopt or straight to signing.
func (c *Client) Start(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "start"), struct{}{}, &resp)
	return resp, err
}

// Adopt stores a signature and initials pair.
func (c *Client) Adopt(ctx context.Context, id, method, signature, initials, font string) (Session, error) {
	body := map[string]any{
		"method":    method,
		"signature": signature,
		"initials":  initials,
		"font":      font,
	}
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "adopt"), body, &resp)
	return resp, err
}

// CompleteField completes one field; value is ignored for signature fields.
func (c *Client) CompleteField(ctx context.Context, id, fieldID, value string) (FieldState, error) {
	body := map[string]any{"value": value}
	var resp FieldState
	endpoint := c.sessionPath(id, fmt.Sprintf("fields/%s/complete", url.PathEscape(fieldID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// MoveField commits a position override for a completed field.
func (c *Client) MoveField(ctx context.Context, id, fieldID string, xPercent, yPercent float64) (bool, error) {
	body := map[string]any{"x_percent": xPercent, "y_percent": yPercent}
	var resp struct {
		Committed bool `json:"committed"`
	}
	endpoint := c.sessionPath(id, fmt.Sprintf("fields/%s/position", url.PathEscape(fieldID)))
	err := c.do(ctx, http.MethodPut, endpoint, body, &resp)
	return resp.Committed, err
}

// JumpTo moves the walk cursor to a field.
func (c *Client) JumpTo(ctx context.Context, id, fieldID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "cursor"), map[string]any{"field_id": fieldID}, &resp)
	return resp, err
}

// EnterReview moves the session into review.
func (c *Client) EnterReview(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "review"), struct{}{}, &resp)
	return resp, err
}

// BackToSigning returns from review to signing.
func (c *Client) BackToSigning(ctx context.Context, id string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "back"), struct{}{}, &resp)
	return resp, err
}

// SetConsent records the consent acknowledgement.
func (c *Client) SetConsent(ctx context.Context, id string, consent bool) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "consent"), map[string]any{"consent": consent}, &resp)
	return resp, err
}

// Finish submits all documents and completes the session.
func (c *Client) Finish(ctx context.Context, id string) (FinishResult, error) {
	var resp FinishResult
	err := c.do(ctx, http.MethodPost, c.sessionPath(id, "finish"), struct{}{}, &resp)
	return resp, err
}

// Events returns recent session events.
func (c *Client) Events(ctx context.Context, id string, limit int) ([]Event, error) {
	endpoint := c.sessionPath(id, "events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) sessionPath(id, p string) string {
	base := fmt.Sprintf("v0/sessions/%s", url.PathEscape(id))
	if p == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
