package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/common"
	"github.com/g1appdev/hubbits/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshPath is the token refresh endpoint of the Hubbits API.
const DefaultRefreshPath = "/api/auth/refresh"

const refreshKey = "refresh"

// TokenStore is the part of the session the client reads and updates.
type TokenStore interface {
	Tokens() models.TokenPair
	// ReplaceTokens stores a refreshed pair only while sent is still the
	// stored refresh token and reports whether it did.
	ReplaceTokens(ctx context.Context, sent, access, refresh string) (bool, error)
	Clear(ctx context.Context) error
}

// HTTPClient talks to the Hubbits REST API. It attaches the bearer token,
// refreshes it once on 401 and maps failures to typed errors. It is safe for
// concurrent use.
type HTTPClient struct {
	baseURL     *url.URL
	hc          *http.Client
	tokens      TokenStore
	refreshPath string
	timeout     time.Duration
	log         logging.Logger
	metrics     *Metrics
	sf          singleflight.Group
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithTimeout bounds every attempt, and the shared refresh call.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.timeout = d }
}

// WithRefreshPath overrides DefaultRefreshPath.
func WithRefreshPath(p string) Option {
	return func(c *HTTPClient) {
		if p != "" {
			c.refreshPath = p
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// New returns a client for the API at baseURL.
func New(baseURL string, tokens TokenStore, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &HTTPClient{
		baseURL:     u,
		hc:          &http.Client{},
		tokens:      tokens,
		refreshPath: DefaultRefreshPath,
		timeout:     15 * time.Second,
		log:         logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was created with.
func (c *HTTPClient) BaseURL() string { return c.baseURL.String() }

// Do issues req and returns the buffered 2xx response. Any other outcome is a
// *NetworkError, *AuthError, *ValidationError or *ServerError.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	access := ""
	if !req.Public {
		access = c.tokens.Tokens().AccessToken
	}

	resp, err := c.send(ctx, req, access)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized {
		if req.Public {
			return nil, &AuthError{Reason: "credentials rejected", Err: statusError(resp)}
		}
		if access == "" && c.tokens.Tokens().RefreshToken == "" {
			return nil, &AuthError{Reason: "not signed in"}
		}

		access, err = c.refresh(ctx, access)
		if err != nil {
			return nil, err
		}

		resp, err = c.send(ctx, req, access)
		if err != nil {
			return nil, err
		}
		if resp.Status == http.StatusUnauthorized {
			return nil, &AuthError{Reason: "rejected after refresh", Err: statusError(resp)}
		}
	}

	if err := statusError(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetJSON performs an authenticated GET and decodes the body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	return Decode(resp, out)
}

// SendJSON sends in as a JSON body and decodes the response into out.
// A nil in sends no body; a nil out discards the response.
func (c *HTTPClient) SendJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := JSONRequest(method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return Decode(resp, out)
}

// SendMultipart sends body as multipart/form-data and decodes into out.
func (c *HTTPClient) SendMultipart(ctx context.Context, method, path string, body MultipartBody, out any) error {
	req, err := MultipartRequest(method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return Decode(resp, out)
}

// Decode unmarshals resp into out. A *string target also accepts a raw,
// non-JSON body. Empty bodies leave out untouched.
func Decode(resp *Response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok {
		if err := json.Unmarshal(resp.Body, s); err != nil {
			*s = strings.TrimSpace(string(resp.Body))
		}
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) resolve(path string, q url.Values) string {
	u := *c.baseURL
	p, rawQuery, _ := strings.Cut(path, "?")
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(p, "/")
	merged, _ := url.ParseQuery(rawQuery)
	for k, vs := range q {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String()
}

// send performs a single attempt. Only transport failures are errors here.
func (c *HTTPClient) send(ctx context.Context, req Request, access string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path, req.Query), body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}
	hreq.Header.Set("Accept", "application/json, text/plain, */*")
	if access != "" && !req.Public {
		hreq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+access)
	}
	requestID := uuid.NewString()
	hreq.Header.Set(common.RequestIDHeaderName, requestID)

	start := time.Now()
	hresp, err := c.hc.Do(hreq)
	if err != nil {
		c.metrics.observeRequest(req.Method, 0, time.Since(start))
		c.log.Warn(ctx, "request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, &NetworkError{Err: err}
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		c.metrics.observeRequest(req.Method, 0, time.Since(start))
		return nil, &NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}
	c.metrics.observeRequest(req.Method, hresp.StatusCode, time.Since(start))
	c.log.Debug(ctx, "request done", "method", req.Method, "path", req.Path, "status", hresp.StatusCode, "request_id", requestID)

	return &Response{Status: hresp.StatusCode, Header: hresp.Header, Body: data}, nil
}

func statusError(resp *Response) error {
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return nil
	case resp.Status >= 500:
		return &ServerError{Status: resp.Status, Payload: resp.Body}
	case resp.Status >= 400:
		return &ValidationError{Status: resp.Status, Payload: resp.Body}
	default:
		return &ServerError{Status: resp.Status, Payload: resp.Body}
	}
}

// refresh returns an access token to retry with after failed was rejected.
// Concurrent callers share one refresh call, and a failed episode clears the
// session once.
func (c *HTTPClient) refresh(ctx context.Context, failed string) (string, error) {
	if token, done, err := c.alreadyRefreshed(failed); done {
		return token, err
	}

	v, err, _ := c.sf.Do(refreshKey, func() (any, error) {
		// The flight that just finished may have served this caller already.
		if token, done, err := c.alreadyRefreshed(failed); done {
			return token, err
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		refreshToken := c.tokens.Tokens().RefreshToken
		if refreshToken == "" {
			c.metrics.observeRefresh("missing")
			c.clearSession(fctx)
			return "", &AuthError{Reason: "no refresh token"}
		}

		access, rotated, err := c.callRefresh(fctx, refreshToken)
		if err != nil {
			c.metrics.observeRefresh("failure")
			if c.tokens.Tokens().RefreshToken != refreshToken {
				return "", &AuthError{Reason: "session ended", Err: err}
			}
			c.log.Info(fctx, "token refresh failed, clearing session", "error", err)
			c.clearSession(fctx)
			return "", &AuthError{Reason: "refresh failed", Err: err}
		}

		stored, err := c.tokens.ReplaceTokens(fctx, refreshToken, access, rotated)
		if err != nil {
			c.log.Error(fctx, "persist refreshed tokens", "error", err)
		}
		if !stored {
			c.metrics.observeRefresh("discarded")
			c.log.Info(fctx, "session changed during refresh, dropping new tokens")
			return "", &AuthError{Reason: "session ended"}
		}
		c.metrics.observeRefresh("success")
		return access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// alreadyRefreshed reports whether the stored token moved on since failed
// was sent. An empty store means the session was cleared meanwhile.
func (c *HTTPClient) alreadyRefreshed(failed string) (string, bool, error) {
	current := c.tokens.Tokens().AccessToken
	if current == failed {
		return "", false, nil
	}
	if current == "" {
		return "", true, &AuthError{Reason: "session ended"}
	}
	return current, true, nil
}

func (c *HTTPClient) clearSession(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.log.Error(ctx, "clear session", "error", err)
	}
}

// callRefresh posts the refresh token and extracts the new token pair from
// the New-Access-Token header, a JSON body or a raw string body.
func (c *HTTPClient) callRefresh(ctx context.Context, refreshToken string) (string, string, error) {
	req := Request{
		Method: http.MethodPost,
		Path:   c.refreshPath,
		Header: http.Header{common.RefreshTokenHeaderName: []string{refreshToken}},
		Public: true,
	}
	resp, err := c.send(ctx, req, "")
	if err != nil {
		return "", "", err
	}
	if err := statusError(resp); err != nil {
		return "", "", err
	}

	access := resp.Header.Get(common.NewAccessTokenHeaderName)
	rotated := resp.Header.Get(common.NewRefreshTokenHeaderName)

	if access == "" || rotated == "" {
		var pair models.TokenPair
		if json.Unmarshal(resp.Body, &pair) == nil {
			if access == "" {
				access = pair.AccessToken
			}
			if rotated == "" {
				rotated = pair.RefreshToken
			}
		} else if access == "" {
			var raw string
			_ = Decode(resp, &raw)
			access = raw
		}
	}

	if access == "" {
		return "", "", errors.New("refresh response carried no access token")
	}
	return access, rotated, nil
}
