package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UploadTarget is a presigned PUT URL plus the storage key items refer to.
type UploadTarget struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// APIError is a non-2xx answer from the HTTP API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// HTTPClient calls the memorylane HTTP API. When a session is attached,
// an expired access token is refreshed once and the call retried; the
// OnRefresh hook sees the rotated session.
type HTTPClient struct {
	baseURL   string
	http      *http.Client
	session   *Session
	OnRefresh func(*Session)
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithSession attaches tokens used for authenticated calls.
func (c *HTTPClient) WithSession(s *Session) *HTTPClient {
	c.session = s
	return c
}

func (c *HTTPClient) Session() *Session {
	return c.session
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	ResolvedInvitations int `json:"resolvedInvitations"`
}

// Login authenticates and attaches the new session. It also reports how
// many pending invitations the server resolved.
func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*Session, int, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, 0, err
	}
	c.session = &Session{
		Email:        resp.User.Email,
		UserID:       resp.User.ID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	return c.session, resp.ResolvedInvitations, nil
}

// PresignUpload asks for an upload target for a blob of contentType.
func (c *HTTPClient) PresignUpload(ctx context.Context, contentType string) (*UploadTarget, error) {
	var out UploadTarget
	err := c.authed(ctx, http.MethodPost, "/api/v1/media/uploads", map[string]string{"contentType": contentType}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) authed(ctx context.Context, method, path string, in, out any) error {
	if c.session == nil {
		return ErrNoSession
	}
	err := c.do(ctx, method, path, c.session.AccessToken, in, out)
	if !errors.Is(err, ErrUnauthorized) || c.session.RefreshToken == "" {
		return err
	}
	if rerr := c.refresh(ctx); rerr != nil {
		return err
	}
	return c.do(ctx, method, path, c.session.AccessToken, in, out)
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": c.session.RefreshToken}, &pair); err != nil {
		return err
	}
	next := *c.session
	next.AccessToken = pair.AccessToken
	next.RefreshToken = pair.RefreshToken
	c.session = &next
	if c.OnRefresh != nil {
		c.OnRefresh(c.session)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
