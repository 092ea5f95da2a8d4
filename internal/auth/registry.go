package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for the registry's well-defined rejections.
var (
	ErrUnknownEmail = errors.New("email not found in plan registry")
	ErrEmailBound   = errors.New("email already bound to another user")
)

// License is the registry's record for one purchased email.
type License struct {
	Plan    string `json:"plan"`
	BoundTo string `json:"bound_to"`
}

// PlanRegistry is the HTTP client for the plan registry service, which
// maps purchase emails to plans and binds each email to a single user.
type PlanRegistry struct {
	baseURL    string
	httpClient *http.Client
}

// NewPlanRegistry creates a registry client.
func NewPlanRegistry(baseURL string, timeout time.Duration) *PlanRegistry {
	return &PlanRegistry{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *PlanRegistry) licenseURL(email string, parts ...string) string {
	u := r.baseURL + "/v1/licenses/" + url.PathEscape(email)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

// Lookup fetches the license for an email.
func (r *PlanRegistry) Lookup(ctx context.Context, email string) (License, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.licenseURL(email), nil)
	if err != nil {
		return License{}, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return License{}, fmt.Errorf("lookup license: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return License{}, ErrUnknownEmail
	default:
		return License{}, fmt.Errorf("lookup license: unexpected status %d", resp.StatusCode)
	}

	var lic License
	if err := json.NewDecoder(resp.Body).Decode(&lic); err != nil {
		return License{}, fmt.Errorf("decode license: %w", err)
	}
	return lic, nil
}

type claimPayload struct {
	UserID string `json:"user_id"`
}

// Claim atomically binds an email's license to a user. Binding is
// first-come: a repeat claim by the same user succeeds, a claim on an
// email held by someone else yields ErrEmailBound.
func (r *PlanRegistry) Claim(ctx context.Context, email, userID string) (License, error) {
	body, err := json.Marshal(claimPayload{UserID: userID})
	if err != nil {
		return License{}, fmt.Errorf("marshal claim: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.licenseURL(email, "claim"), bytes.NewReader(body))
	if err != nil {
		return License{}, fmt.Errorf("build claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return License{}, fmt.Errorf("claim license: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return License{}, ErrUnknownEmail
	case http.StatusConflict:
		return License{}, ErrEmailBound
	default:
		return License{}, fmt.Errorf("claim license: unexpected status %d", resp.StatusCode)
	}

	var lic License
	if err := json.NewDecoder(resp.Body).Decode(&lic); err != nil {
		return License{}, fmt.Errorf("decode license: %w", err)
	}
	return lic, nil
}
