package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/genlayer/glvault/pkg/types"
)

// AdminClient drives the bearer-protected admin endpoints. The CLI is its
// main consumer.
type AdminClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAdmin creates an admin client for the vault at baseURL.
func NewAdmin(baseURL, adminToken string) *AdminClient {
	return &AdminClient{
		baseURL:    baseURL,
		token:      adminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterRequest carries the fields of a key registration.
type RegisterRequest struct {
	Alias      string `json:"alias"`
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	QuotaLimit int64  `json:"quota_limit,omitempty"`
	Owner      string `json:"owner,omitempty"`
}

// Register registers a new credential and returns its metadata.
func (a *AdminClient) Register(ctx context.Context, req RegisterRequest) (*types.KeyMetadata, error) {
	var meta types.KeyMetadata
	if err := a.call(ctx, http.MethodPost, "/keys/register", req, http.StatusCreated, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListResponse is the body of GET /keys/list.
type ListResponse struct {
	Count int                 `json:"count"`
	Keys  []types.KeyMetadata `json:"keys"`
}

// List returns metadata for every registered key.
func (a *AdminClient) List(ctx context.Context) (*ListResponse, error) {
	var out ListResponse
	if err := a.call(ctx, http.MethodGet, "/keys/list", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rotate replaces the credential behind an alias and returns the rotation
// timestamp.
func (a *AdminClient) Rotate(ctx context.Context, alias, newAPIKey string) (int64, error) {
	var out struct {
		Alias     string `json:"alias"`
		RotatedAt int64  `json:"rotated_at"`
	}
	body := map[string]string{"alias": alias, "new_api_key": newAPIKey}
	if err := a.call(ctx, http.MethodPost, "/keys/rotate", body, http.StatusOK, &out); err != nil {
		return 0, err
	}
	return out.RotatedAt, nil
}

// Remove deletes the credential behind an alias.
func (a *AdminClient) Remove(ctx context.Context, alias string) error {
	body := map[string]string{"alias": alias}
	return a.call(ctx, http.MethodPost, "/keys/remove", body, http.StatusOK, nil)
}

// AuditReport is the body of GET /keys/audit.
type AuditReport struct {
	Alias   string             `json:"alias"`
	Stats   types.AuditStats   `json:"stats"`
	Entries []types.AuditEntry `json:"entries"`
}

// Audit fetches audit statistics and recent entries for an alias.
func (a *AdminClient) Audit(ctx context.Context, alias string, sinceMS int64, limit int) (*AuditReport, error) {
	q := url.Values{}
	q.Set("alias", alias)
	if sinceMS > 0 {
		q.Set("since", strconv.FormatInt(sinceMS, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out AuditReport
	if err := a.call(ctx, http.MethodGet, "/keys/audit?"+q.Encode(), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the operational health report. A degraded vault answers
// 503 with the same body shape, so both 200 and 503 decode successfully.
func (a *AdminClient) Health(ctx context.Context) (*types.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach vault: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var out types.HealthStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode vault response: %w", err)
	}
	return &out, nil
}

func (a *AdminClient) call(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach vault: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read vault response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return decodeError(resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode vault response: %w", err)
		}
	}
	return nil
}
