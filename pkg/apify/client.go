package apify

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
)

// maxBodyBytes bounds how much of a dataset response is read into memory.
const maxBodyBytes = 64 << 20

// Client talks to the actor-run API with a single token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewClient creates a client. An empty token is accepted here and reported
// as a config error on the first call, so a server can start without one.
func NewClient(token string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    DefaultBaseURL,
		token:      strings.TrimSpace(token),
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasToken reports whether the client can make authenticated calls.
func (c *Client) HasToken() bool {
	return c.token != ""
}

func (c *Client) requireToken() error {
	if !c.HasToken() {
		return errors.Config("APIFY_API_KEY is not configured")
	}
	return nil
}

// do performs req and returns the status and the body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	redacted := Redact(req.URL.String())
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    redacted,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      redacted,
			"error":    Redact(err.Error()),
			"duration": duration,
		})
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      redacted,
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp.StatusCode, body, nil
}

func preview(body []byte) string {
	p := string(body)
	if len(p) > 200 {
		p = p[:200] + "..."
	}
	return p
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// StartRun launches actorID with input and returns its handle.
func (c *Client) StartRun(ctx context.Context, actorID string, input ActorInput) (*JobHandle, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, errors.LaunchFailed(0, "", fmt.Errorf("encode input: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RunsURL(c.baseURL, actorID, c.token), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.LaunchFailed(0, "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, errors.LaunchFailed(status, "", stderrors.New(Redact(err.Error())))
	}
	if !ok(status) {
		c.logger.ErrorWithFields("actor launch rejected", map[string]interface{}{
			"actor":        actorID,
			"status":       status,
			"body_preview": preview(body),
		})
		return nil, errors.LaunchFailed(status, string(body), nil)
	}

	var run envelope[Run]
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, errors.LaunchFailed(status, string(body), fmt.Errorf("decode response: %w", err))
	}
	if run.Data.ID == "" {
		return nil, errors.LaunchFailed(status, string(body), stderrors.New("response has no run id"))
	}

	c.logger.InfoWithFields("actor run started", map[string]interface{}{
		"actor":  actorID,
		"run_id": run.Data.ID,
	})

	return &JobHandle{
		JobID:     run.Data.ID,
		ActorID:   actorID,
		DatasetID: run.Data.DefaultDatasetID,
	}, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, h JobHandle) (*Run, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, RunURL(c.baseURL, h.ActorID, h.JobID, c.token), nil)
	if err != nil {
		return nil, errors.Network("failed to create request", err)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, errors.Network("Failed to check run status", stderrors.New(Redact(err.Error())))
	}
	if !ok(status) {
		t := errors.ErrorTypeServerError
		if status == http.StatusNotFound {
			t = errors.ErrorTypeNotFound
		}
		return nil, &errors.Error{
			Type:    t,
			Message: "Failed to check run status",
			Code:    status,
			Details: string(body),
		}
	}

	var run envelope[Run]
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, errors.Parse("Failed to parse run status", err)
	}
	return &run.Data, nil
}

// DatasetItems downloads every item a finished run produced. With
// byDataset set and a known dataset id the dataset is read directly,
// otherwise through the run.
func (c *Client) DatasetItems(ctx context.Context, h JobHandle, byDataset bool) (Items, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	target := RunDatasetItemsURL(c.baseURL, h.ActorID, h.JobID, c.token)
	if byDataset && h.DatasetID != "" {
		target = DatasetItemsURL(c.baseURL, h.DatasetID, c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.DatasetFetch(0, "", err)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, errors.DatasetFetch(status, "", stderrors.New(Redact(err.Error())))
	}
	if !ok(status) {
		return nil, errors.DatasetFetch(status, string(body), nil)
	}

	var items Items
	if err := json.Unmarshal(body, &items); err != nil {
		c.logger.ErrorWithFields("failed to parse dataset", map[string]interface{}{
			"run_id":       h.JobID,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "Failed to parse results",
			Details: preview(body),
			Err:     err,
		}
	}
	return items, nil
}
