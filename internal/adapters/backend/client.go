// Package backend is the client for the VMS preference backend. It reads
// capacity summaries, family rosters and events, and writes pass preferences.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// Backend paths.
const (
	pathCapacity    = "/pass-preferences/vaaz-center-summary"
	pathRoster      = "/mumineen/family-by-its-id"
	pathPreferences = "/pass-preferences/vaaz-center"
	pathEvents      = "/events"
)

const maxErrorBody = 64 << 10

// Config holds backend client configuration.
type Config struct {
	BaseURL     string        // e.g. "http://localhost:8000/api"
	TokenHeader string        // header carrying the session token, "Token" by default
	Timeout     time.Duration // per request; 0 means 10s
}

// Client talks to the preference backend over HTTP. It is safe for
// concurrent use.
type Client struct {
	baseURL     string
	tokenHeader string
	httpClient  *http.Client
	logger      logger.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	header := cfg.TokenHeader
	if header == "" {
		header = "Token"
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokenHeader: header,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log,
	}
}

// FetchCapacity returns the capacity summary of every venue of eventID.
// Every call hits the backend and returns freshly decoded values.
func (c *Client) FetchCapacity(ctx context.Context, cred model.Credential, eventID int64) ([]model.Venue, error) {
	const op = "fetch_capacity"

	body, err := c.do(ctx, cred, op, http.MethodGet, pathCapacity, eventQuery(eventID), nil)
	if err != nil {
		return nil, err
	}

	raw, err := unwrapData(body)
	if err != nil {
		return nil, decodeError(op, err)
	}
	var dtos []venueDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, decodeError(op, err)
	}

	venues := make([]model.Venue, 0, len(dtos))
	for _, d := range dtos {
		v := d.toModel()
		for i, b := range v.Blocks {
			if b.Gender == model.BlockUnknown {
				c.logger.Warn(ctx, "block gender unrecognised, block admits nobody",
					logger.String("op", op),
					logger.Int64("venue_id", v.ID),
					logger.Int64("block_id", b.ID),
					logger.String("gender", d.Blocks[i].Gender))
			}
		}
		venues = append(venues, v)
	}
	return venues, nil
}

// FetchRoster returns the family of the credential holder for eventID, each
// member with its confirmed preference for that event, if any.
func (c *Client) FetchRoster(ctx context.Context, cred model.Credential, eventID int64) ([]model.Member, error) {
	const op = "fetch_roster"

	body, err := c.do(ctx, cred, op, http.MethodGet, pathRoster, eventQuery(eventID), nil)
	if err != nil {
		return nil, err
	}

	raw, err := unwrapData(body)
	if err != nil {
		return nil, decodeError(op, err)
	}
	var dtos []memberDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, decodeError(op, err)
	}

	members := make([]model.Member, 0, len(dtos))
	for _, d := range dtos {
		members = append(members, d.toModel(eventID))
	}
	return members, nil
}

// CreatePreferences stores preferences for members that have none, in one POST.
func (c *Client) CreatePreferences(ctx context.Context, cred model.Credential, eventID int64, batch []model.Selection) ([]model.RowResult, error) {
	return c.write(ctx, cred, "create_preferences", http.MethodPost, eventID, batch)
}

// UpdatePreferences replaces existing preferences, in one PUT.
func (c *Client) UpdatePreferences(ctx context.Context, cred model.Credential, eventID int64, batch []model.Selection) ([]model.RowResult, error) {
	return c.write(ctx, cred, "update_preferences", http.MethodPut, eventID, batch)
}

func (c *Client) write(ctx context.Context, cred model.Credential, op, method string, eventID int64, batch []model.Selection) ([]model.RowResult, error) {
	body, err := c.do(ctx, cred, op, method, pathPreferences, nil, rowsFor(eventID, batch))
	if err != nil {
		return nil, err
	}

	// A body that is not a per-row report means the batch succeeded as a whole.
	var resp writeResponse
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &resp) != nil {
		return nil, nil
	}

	rows := make([]model.RowResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		rows = append(rows, model.RowResult{
			MemberID: int64(r.ITSID),
			OK:       r.Success,
			Message:  r.Message,
		})
	}
	return rows, nil
}

// Events lists the backend's events.
func (c *Client) Events(ctx context.Context, cred model.Credential) ([]model.Event, error) {
	const op = "list_events"

	body, err := c.do(ctx, cred, op, http.MethodGet, pathEvents, nil, nil)
	if err != nil {
		return nil, err
	}

	raw, err := unwrapData(body)
	if err != nil {
		return nil, decodeError(op, err)
	}
	var dtos []eventDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, decodeError(op, err)
	}

	events := make([]model.Event, 0, len(dtos))
	for _, d := range dtos {
		events = append(events, model.Event{ID: int64(d.ID), Name: d.Name, Status: d.Status})
	}
	return events, nil
}

// ActiveEvent returns the first event whose status is active.
func (c *Client) ActiveEvent(ctx context.Context, cred model.Credential) (model.Event, error) {
	events, err := c.Events(ctx, cred)
	if err != nil {
		return model.Event{}, err
	}
	for _, e := range events {
		if e.Active() {
			return e, nil
		}
	}
	return model.Event{}, ErrNoActiveEvent
}

// do sends one request and returns the body of a 2xx response. Every other
// outcome becomes a *model.ServiceError.
func (c *Client) do(ctx context.Context, cred model.Credential, op, method, path string, query url.Values, payload any) ([]byte, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordBackendRequest(op, status, float64(time.Since(start).Milliseconds()))
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	c.setHeaders(ctx, req, cred)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "backend unreachable",
			logger.String("op", op),
			logger.String("method", method),
			logger.String("path", path),
			logger.Error(err))
		return nil, &model.ServiceError{
			Kind:    model.ErrTransport,
			Message: "Unable to reach the server, please try again",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.ServiceError{
			Kind:    model.ErrTransport,
			Status:  resp.StatusCode,
			Message: "Unable to read the server response",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := statusError(resp.StatusCode, body)
		c.logger.Warn(ctx, "backend call failed",
			logger.String("op", op),
			logger.Int("status", resp.StatusCode),
			logger.String("message", se.Message))
		return nil, se
	}

	c.logger.Debug(ctx, "backend call",
		logger.String("op", op),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))
	return body, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, cred model.Credential) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.tokenHeader, cred.Token())

	id := logger.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)
}

// statusError classifies a non-2xx response. A 4xx that explains itself is a
// business rejection; anything else is a transport failure.
func statusError(code int, body []byte) *model.ServiceError {
	var eb errorBody
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	_ = json.Unmarshal(body, &eb)

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}

	se := &model.ServiceError{Kind: model.ErrTransport, Status: code, Message: msg}
	if msg == "" {
		se.Message = fmt.Sprintf("HTTP error! status: %d", code)
		return se
	}
	if code >= 400 && code < 500 {
		se.Kind = model.ErrRejected
	}
	return se
}

func decodeError(op string, err error) error {
	return &model.ServiceError{
		Kind:    model.ErrTransport,
		Message: "Unexpected response from the server",
		Err:     fmt.Errorf("%s: %w: %w", op, ErrDecode, err),
	}
}

func eventQuery(eventID int64) url.Values {
	return url.Values{"event_id": []string{strconv.FormatInt(eventID, 10)}}
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var se *model.ServiceError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}
