package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
)

// User is the subset of the identity provider's user object goingviral
// reads.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	Aud          string     `json:"aud"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}

// Client talks to a Supabase GoTrue auth server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	logger     logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the project at baseURL.
func NewClient(baseURL, anonKey string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		anonKey:    strings.TrimSpace(anonKey),
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a project URL and key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.anonKey != ""
}

// NormalizeEmail validates a bare address and lowercases it.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.Validation("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", errors.Validation("A valid email is required")
	}
	return strings.ToLower(addr.Address), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// apiError is the error body GoTrue answers with.
type apiError struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func describe(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil {
		for _, s := range []string{e.Message, e.ErrorDescription, e.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// SendMagicLink emails a one-time sign-in link to email. The link leads
// back to redirectTo when set. New addresses get an account.
func (c *Client) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	if !c.Configured() {
		return errors.Config("Supabase is not configured")
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/otp", query, map[string]interface{}{
		"email":       email,
		"create_user": true,
	})
	if err != nil {
		return errors.Network("Failed to send magic link", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.anonKey)

	status, body, err := c.do(req)
	if err != nil {
		return errors.Network("Failed to send magic link", err)
	}

	switch {
	case status >= 200 && status < 300:
		c.logger.InfoWithFields("magic link sent", map[string]interface{}{
			"email_domain": emailDomain(email),
		})
		return nil
	case status == http.StatusTooManyRequests:
		return errors.RateLimited("Too many login attempts, try again later")
	case status >= 400 && status < 500:
		e := errors.Validation(describe(body))
		e.Code = status
		return e
	default:
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "Failed to send magic link",
			Code:    status,
			Details: describe(body),
		}
	}
}

// User returns the user an access token belongs to.
func (c *Client) User(ctx context.Context, accessToken string) (*User, error) {
	if !c.Configured() {
		return nil, errors.Config("Supabase is not configured")
	}
	if accessToken == "" {
		return nil, errors.Auth("Missing session")
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil, nil)
	if err != nil {
		return nil, errors.Network("Failed to verify session", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	status, body, err := c.do(req)
	if err != nil {
		return nil, errors.Network("Failed to verify session", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, errors.Auth("Invalid or expired session")
	}
	if status < 200 || status >= 300 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "Failed to verify session",
			Code:    status,
			Details: describe(body),
		}
	}

	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, errors.Parse("Failed to parse user", err)
	}
	if u.ID == "" {
		return nil, errors.Auth("Invalid or expired session")
	}
	return &u, nil
}

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
