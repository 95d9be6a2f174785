package catalog

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

	"signline/internal/domain"
)

// RemoteClient talks to the collaborator services that own field catalogs,
// renderable URLs and finalized-signature intake.
type RemoteClient struct {
	CatalogURL  string
	SubmitURL   string
	ResolverURL string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// NewRemoteClient creates a client with sane defaults.
func NewRemoteClient(catalogURL, submitURL, resolverURL string) *RemoteClient {
	return &RemoteClient{
		CatalogURL:  catalogURL,
		SubmitURL:   submitURL,
		ResolverURL: resolverURL,
		Timeout:     10 * time.Second,
	}
}

// APIError wraps non-2xx collaborator responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("collaborator error: status=%d body=%s", e.StatusCode, e.Body)
}

// Fields implements Source against the catalog service.
func (c *RemoteClient) Fields(ctx context.Context, templateID string) ([]domain.SignatureField, error) {
	var resp struct {
		Items []domain.SignatureField `json:"items"`
	}
	endpoint := fmt.Sprintf("%s/templates/%s/fields", strings.TrimRight(c.CatalogURL, "/"), url.PathEscape(templateID))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ResolveRenderableURL returns a signed content URL for a document.
func (c *RemoteClient) ResolveRenderableURL(ctx context.Context, documentID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	endpoint := fmt.Sprintf("%s/documents/%s/url", strings.TrimRight(c.ResolverURL, "/"), url.PathEscape(documentID))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Submit dispatches one document's finalized signature data.
func (c *RemoteClient) Submit(ctx context.Context, documentID, signerName, signaturePayload, userAgent string, layout []domain.SignatureField) error {
	body := map[string]any{
		"signer_name": signerName,
		"signature":   signaturePayload,
		"user_agent":  userAgent,
	}
	if len(layout) > 0 {
		body["field_layout"] = layout
	}
	endpoint := fmt.Sprintf("%s/documents/%s/sign", strings.TrimRight(c.SubmitURL, "/"), url.PathEscape(documentID))
	return c.do(ctx, http.MethodPost, endpoint, body, nil)
}

func (c *RemoteClient) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
