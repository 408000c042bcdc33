package verifyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-prayer-verify/internal/verification"
)

// maxBody caps how much of a reply is read.
const maxBody = 1 << 20

// Client talks to the verification HTTP API. It satisfies verification.Backend
// and verification.SettingSource.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SendVerificationCode(ctx context.Context, req verification.SendCodeRequest) (*verification.SendCodeResponse, error) {
	var out verification.SendCodeResponse
	if err := c.call(ctx, http.MethodPost, "/v1/verification/send-code", req, &out, func() bool { return out.Present() }); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyCode(ctx context.Context, req verification.VerifyCodeRequest) (*verification.VerifyCodeResponse, error) {
	var out verification.VerifyCodeResponse
	if err := c.call(ctx, http.MethodPost, "/v1/verification/verify-code", req, &out, func() bool { return out.Present() }); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAdminSetting returns nil when the setting row or its value is absent.
func (c *Client) GetAdminSetting(ctx context.Context, key string) (*bool, error) {
	var out struct {
		Value *bool `json:"value"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/settings/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("get setting %s: unexpected status %d", key, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return out.Value, nil
}

// call posts body and decodes the reply into out. A non-2xx status whose body
// carries an error payload is returned as a reply, not an error, so the caller
// sees the backend's message.
func (c *Client) call(ctx context.Context, method, path string, body, out any, hasPayload func() bool) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	decodeErr := json.Unmarshal(raw, out)
	if resp.StatusCode/100 == 2 {
		if decodeErr != nil {
			return fmt.Errorf("decode reply: %w", decodeErr)
		}
		return nil
	}
	if decodeErr == nil && hasPayload() {
		return nil
	}
	return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
}
