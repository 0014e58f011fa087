package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/internal/domain/types"
)

// HTTPClient talks to the coordinator API on behalf of one session token.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: config.BaseURL,
		token:   config.Token,
	}
}

// do sends body as JSON, decodes a 2xx response into out and returns the
// status code.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *HTTPClient) activeEvent(ctx context.Context) (model.Event, error) {
	var ev model.Event
	_, err := c.do(ctx, http.MethodGet, "/events/active", nil, &ev)
	return ev, err
}

func (c *HTTPClient) members(ctx context.Context, eventID int64) ([]types.Member, error) {
	var out []types.Member
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/members", eventID), nil, &out)
	return out, err
}

func (c *HTTPClient) venues(ctx context.Context, eventID int64, refresh bool) ([]types.Venue, error) {
	var out []types.Venue
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/venues?refresh=%t", eventID, refresh), nil, &out)
	return out, err
}

func (c *HTTPClient) status(ctx context.Context, eventID, memberID int64) (types.Status, error) {
	var out types.Status
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/members/%d/status", eventID, memberID), nil, &out)
	return out, err
}

func (c *HTTPClient) selectVenue(ctx context.Context, eventID int64, sel model.Selection) error {
	body := struct {
		VenueID int64  `json:"venue_id"`
		BlockID *int64 `json:"block_id,omitempty"`
	}{VenueID: sel.VenueID, BlockID: sel.BlockID}
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/events/%d/selections/%d", eventID, sel.MemberID), body, nil)
	return err
}

func (c *HTTPClient) clearSelection(ctx context.Context, eventID, memberID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/events/%d/selections/%d", eventID, memberID), nil, nil)
	return err
}

func (c *HTTPClient) submit(ctx context.Context, eventID int64, memberIDs []int64) (model.Report, error) {
	var report model.Report
	body := struct {
		MemberIDs []int64 `json:"member_ids"`
	}{MemberIDs: memberIDs}
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/submit", eventID), body, &report)
	return report, err
}

// healthy reports whether /healthz answers 200.
func (c *HTTPClient) healthy(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}
