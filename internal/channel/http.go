package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the daemon's HTTP API: snapshot polling and user
// actions. The websocket feed is preferred for receiving state; this is
// the fallback and the action path.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client pointing at the daemon's base URL (e.g.
// "http://localhost:7168").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchRawState fetches the daemon's full state document, unparsed so
// the normalizer can handle whatever schema generation comes back.
func (c *Client) FetchRawState(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/state", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, daemonError(resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	return raw, nil
}

// SendAction posts one user action to the daemon. It satisfies the
// reconciler's action sender.
func (c *Client) SendAction(ctx context.Context, action, sessionID string) error {
	body := map[string]string{"action": action}
	if sessionID != "" {
		body["sessionId"] = sessionID
	}
	return c.postJSON(ctx, "/api/v1/actions", body)
}

// Health checks the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return daemonError(resp)
	}
	return nil
}

// postJSON performs a POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return daemonError(resp)
	}
	return nil
}

// daemonError reads an error response from the daemon and returns it as
// an error.
func daemonError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("daemon (%d): %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("daemon (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
