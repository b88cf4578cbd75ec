package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genlayer/glvault/pkg/auth"
	"github.com/genlayer/glvault/pkg/security"
	"github.com/genlayer/glvault/pkg/types"
)

// Client submits signed relay requests to a vault. It is the Go counterpart
// of the in-contract caller library: it never sees the credential, only the
// alias standing in for it.
type Client struct {
	baseURL    string
	secret     []byte
	httpClient *http.Client
	caller     string

	now func() int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCallerID sets the X-Caller-Id header on every request.
func WithCallerID(id string) Option {
	return func(c *Client) { c.caller = id }
}

// New creates a relay client for the vault at baseURL, signing with the
// shared HMAC secret.
func New(baseURL, hmacSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secret:     []byte(hmacSecret),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        types.NowMS,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a non-2xx response from the vault.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vault returned %d: %s", e.Status, e.Message)
}

// Get relays a GET request through the vault.
func (c *Client) Get(ctx context.Context, alias, path string, headers map[string]string) (*types.RelayResponse, error) {
	return c.Do(ctx, alias, http.MethodGet, path, nil, headers)
}

// Post relays a POST request with a JSON body through the vault.
func (c *Client) Post(ctx context.Context, alias, path string, body any, headers map[string]string) (*types.RelayResponse, error) {
	return c.Do(ctx, alias, http.MethodPost, path, body, headers)
}

// Put relays a PUT request with a JSON body through the vault.
func (c *Client) Put(ctx context.Context, alias, path string, body any, headers map[string]string) (*types.RelayResponse, error) {
	return c.Do(ctx, alias, http.MethodPut, path, body, headers)
}

// Delete relays a DELETE request through the vault.
func (c *Client) Delete(ctx context.Context, alias, path string, headers map[string]string) (*types.RelayResponse, error) {
	return c.Do(ctx, alias, http.MethodDelete, path, nil, headers)
}

// Do builds, signs, and submits one relay request.
func (c *Client) Do(ctx context.Context, alias, method, path string, body any, headers map[string]string) (*types.RelayResponse, error) {
	nonce, err := security.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	req := &types.RelayRequest{
		Alias:     alias,
		Path:      path,
		Method:    method,
		Timestamp: c.now(),
		Nonce:     nonce,
		Headers:   headers,
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = raw
	}

	sig := auth.SignRequest(req, c.secret)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/proxy", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", signaturePrefix+sig)
	if c.caller != "" {
		httpReq.Header.Set("X-Caller-Id", c.caller)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach vault: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var relayResp types.RelayResponse
	if err := json.Unmarshal(raw, &relayResp); err != nil {
		return nil, fmt.Errorf("failed to decode vault response: %w", err)
	}
	return &relayResp, nil
}

const signaturePrefix = "Signature "

func decodeError(status int, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &Error{Status: status, Message: http.StatusText(status)}
	}
	return &Error{Status: status, Message: body.Error}
}
