package clerk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a minimal client for the identity provider's backend API. The
// only operation this service needs is the metadata writeback performed after
// a user record is created locally.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewClient creates a provider API client. timeout bounds every call; callers
// do not get to wait on the provider indefinitely.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// WriteInternalID attaches the locally generated record id to the provider's
// user as public metadata, so provider-authenticated frontend calls can carry
// it. One-shot, no retries here: a failure is logged by the caller and
// reconciled manually.
func (c *Client) WriteInternalID(ctx context.Context, subjectID, internalID string) error {
	body, err := json.Marshal(map[string]interface{}{
		"public_metadata": map[string]string{"userId": internalID},
	})
	if err != nil {
		return fmt.Errorf("marshal metadata payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/users/%s/metadata", c.baseURL, url.PathEscape(subjectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// keep a short response excerpt for the log; enough to reconcile
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("metadata request returned %d: %s", resp.StatusCode, excerpt)
	}
	return nil
}
