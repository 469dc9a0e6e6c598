package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// SessionCookieName is the cookie the backend issues on first contact and
// expects on every subsequent request.
const SessionCookieName = "hemline_session"

// Client is an HTTP client for the Hemline commerce backend. It keeps the
// backend's session cookie in a jar so one Client maps to one shopping
// session.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached if the
// given client has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSession seeds the jar with an existing session cookie, restoring a
// previous shopping session.
func WithSession(token string) ClientOption {
	return func(c *Client) {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return
		}
		c.httpClient.Jar.SetCookies(u, []*http.Cookie{{
			Name:  SessionCookieName,
			Value: token,
		}})
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
		if c.httpClient.Jar == nil {
			c.httpClient.Jar = jar
		}
	}
	return c
}

// SessionToken returns the current session cookie value, or "" before the
// backend has issued one.
func (c *Client) SessionToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// do performs a JSON request against the backend. A non-2xx response decodes
// into *Error so callers can surface the backend's own message.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) == nil && apiErr.Message != "" {
			return apiErr
		}
		return &Error{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("backend error (status %d): %s", resp.StatusCode, string(respBody)),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
