package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteStore implements FactStore against the remote key-value service.
// All calls are bounded by the client timeout; non-2xx responses and
// malformed payloads are returned as errors for the caller's fallback
// logic to absorb.
type RemoteStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote creates a fact store client for the remote KV service.
func NewRemote(baseURL string, timeout time.Duration) *RemoteStore {
	return &RemoteStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type factPayload struct {
	Value string `json:"value"`
}

type upsertResponse struct {
	OK bool `json:"ok"`
}

func (s *RemoteStore) userURL(userID string, parts ...string) string {
	u := s.baseURL + "/v1/users/" + url.PathEscape(userID) + "/facts"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// Load retrieves all keys for a user.
func (s *RemoteStore) Load(ctx context.Context, userID string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userURL(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("build load request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return map[string]string{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load facts: unexpected status %d", resp.StatusCode)
	}

	var facts map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	if facts == nil {
		facts = map[string]string{}
	}
	return facts, nil
}

// Get retrieves a single key. Missing keys yield ("", nil).
func (s *RemoteStore) Get(ctx context.Context, userID, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userURL(userID, key), nil)
	if err != nil {
		return "", fmt.Errorf("build get request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get fact %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get fact %s: unexpected status %d", key, resp.StatusCode)
	}

	var payload factPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode fact %s: %w", key, err)
	}
	return payload.Value, nil
}

// Upsert creates or replaces a single key.
func (s *RemoteStore) Upsert(ctx context.Context, userID, key, value string) error {
	body, err := json.Marshal(factPayload{Value: value})
	if err != nil {
		return fmt.Errorf("marshal fact %s: %w", key, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.userURL(userID, key), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert fact %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upsert fact %s: status %d: %s", key, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var ack upsertResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// Some deployments return an empty 200; treat it as success.
		return nil
	}
	if !ack.OK {
		return fmt.Errorf("upsert fact %s: store rejected write", key)
	}
	return nil
}

// Ping verifies the remote store is reachable.
func (s *RemoteStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping fact store: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping fact store: status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op for the HTTP client.
func (s *RemoteStore) Close() error {
	return nil
}
