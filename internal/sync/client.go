package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vocabtrainer/internal/synccodec"
)

// Remote is the client-side view of the remote store protocol.
type Remote interface {
	// Push submits an encrypted payload for a keyId.
	Push(ctx context.Context, req PushRequest) (*PushResponse, error)
	// Pull fetches the current payload for a keyId, if any.
	Pull(ctx context.Context, keyID string) (*PullResponse, error)
}

// PushRequest is the push operation body.
type PushRequest struct {
	KeyID     string              `json:"keyId"`
	UpdatedAt string              `json:"updatedAt"`
	Payload   *synccodec.Envelope `json:"payload"`
	Reason    string              `json:"reason,omitempty"`
}

// PushResponse is the push operation result. Stored is false when the server
// ignored the write because its record carries a later timestamp.
type PushResponse struct {
	OK        bool   `json:"ok"`
	Stored    bool   `json:"stored"`
	Ignored   bool   `json:"ignored,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

// PullResponse is the pull operation result.
type PullResponse struct {
	Found     bool                `json:"found"`
	UpdatedAt string              `json:"updatedAt,omitempty"`
	Payload   *synccodec.Envelope `json:"payload,omitempty"`
}

// Client is an HTTP client for the remote store.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates a new remote store client. A bounded timeout keeps a dead
// endpoint from hanging a session; expiry surfaces as a network failure.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: SanitizeEndpoint(baseURL),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SanitizeEndpoint trims whitespace and trailing slashes from an endpoint URL.
func SanitizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

// Push submits an encrypted payload for a keyId.
func (c *Client) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	var resp PushResponse
	if err := c.post(ctx, "/sync/push", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pull fetches the current payload for a keyId, if any.
func (c *Client) Pull(ctx context.Context, keyID string) (*PullResponse, error) {
	var resp PullResponse
	body := struct {
		KeyID string `json:"keyId"`
	}{KeyID: keyID}
	if err := c.post(ctx, "/sync/pull", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("%w: %s", ErrRemote, e.Error)
		}
		return fmt.Errorf("%w: HTTP %d", ErrRemote, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response body: %v", ErrRemote, err)
	}
	return nil
}
