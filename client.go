package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrSessionEnded is returned when a request failed with 401 and the
// refresh cycle could not mint a new access token.
var ErrSessionEnded = goerrors.New("session ended", goerrors.CategoryAuth).
	WithTextCode("SESSION_ENDED").
	WithCode(goerrors.CodeUnauthorized)

// Client wraps an http.Client with a cookie jar holding the session
// cookies. On a 401 it runs exactly one refresh-and-retry cycle against
// the auth server before giving up.
type Client struct {
	http       *http.Client
	baseURL    string
	refreshURL string
	logger     Logger
}

type ClientOption func(*Client)

// WithClientHTTP replaces the underlying http.Client. The jar is applied
// on top of it.
func WithClientHTTP(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a session-aware client. baseURL is the auth server
// root, e.g. "http://localhost:3000".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  defLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create cookie jar")
	}
	c.http.Jar = jar
	c.refreshURL = c.baseURL + "/refresh"

	return c, nil
}

// Login authenticates against the auth server and stores the session
// cookies in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "login request failed")
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusForbidden:
		return ErrEmailNotVerified
	default:
		return ErrInvalidCredentials
	}
}

// Do executes the request with session cookies attached. A 401 response
// triggers one refresh attempt followed by a single retry; a second 401
// surfaces ErrSessionEnded.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized {
		return res, nil
	}

	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()

	if err := c.refresh(req.Context()); err != nil {
		return nil, err
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}

	res, err = c.http.Do(retry)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
		return nil, ErrSessionEnded
	}

	return res, nil
}

// Get is a convenience wrapper over Do.
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	return c.Do(req)
}

// Logout ends the session server side and drops the local cookies.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signout", nil)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build signout request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "signout request failed")
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return nil
}

func (c *Client) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, nil)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build refresh request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "refresh request failed")
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		c.logger.Debug("refresh rejected with status %d", res.StatusCode)
		return ErrSessionEnded
	}

	return nil
}

// cloneRequest rebuilds the request so the retry carries a fresh body.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.GetBody == nil {
		if req.Body != nil {
			return nil, goerrors.New("cannot retry request with consumed body", goerrors.CategoryBadInput)
		}
		return clone, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rewind request body")
	}
	clone.Body = body

	return clone, nil
}
