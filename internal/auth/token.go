// Package auth obtains short-lived streaming credentials from the backend's
// token-grant endpoint.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const grantPath = "/api/v1/auth/grant"

// Credential is a short-lived token granting access to the streaming
// endpoint. It is immutable once issued.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	KeyType     string    `json:"key_type"`
}

// Expired reports whether the credential's expiry is at or before now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Provider issues token-grant requests. It does not cache; callers hold on
// to the returned Credential and check Expired before reusing it.
type Provider struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Logger      *log.Logger
}

func NewProvider(baseURL, bearerToken string, logger *log.Logger) *Provider {
	return &Provider{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		BearerToken: bearerToken,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		Logger:      logger,
	}
}

type grantRequest struct {
	Type string `json:"type"`
}

// Grant requests a websocket credential from {base_url}/api/v1/auth/grant.
// bearerOverride, when non-empty, replaces the configured default token for
// this one request.
func (p *Provider) Grant(ctx context.Context, bearerOverride string) (Credential, error) {
	body, err := json.Marshal(grantRequest{Type: "websocket"})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to encode grant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+grantPath, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to build grant request: %w", err)
	}

	token := p.BearerToken
	if bearerOverride != "" {
		token = bearerOverride
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return Credential{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Credential{}, &AuthError{
			Status: resp.StatusCode,
			Body:   readErrorBody(resp),
		}
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return Credential{}, &AuthError{Err: fmt.Errorf("failed to decode credential: %w", err)}
	}

	p.Logger.Debug("granted", "key_type", cred.KeyType, "expires_at", cred.ExpiresAt)

	return cred, nil
}

// readErrorBody extracts diagnostic text from a rejection. JSON bodies are
// flattened to their error field when present, anything else is returned
// verbatim.
func readErrorBody(resp *http.Response) string {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err == nil {
			if msg, ok := payload["error"].(string); ok {
				return msg
			}
			return string(raw)
		}
	}

	return string(raw)
}
