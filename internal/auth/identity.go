package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "classifieds/internal/errors"
)

// Identity is the profile returned by the identity provider for a
// completed SSO handshake.
type Identity struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Picture      *string `json:"picture"`
	SessionToken string  `json:"session_token"`
}

// IdentityProvider exchanges a one-time SSO session id for an identity.
type IdentityProvider interface {
	Exchange(ctx context.Context, sessionID string) (*Identity, error)
}

// IdentityClient talks to the hosted identity provider over HTTP.
type IdentityClient struct {
	sessionURL string
	httpClient *http.Client
}

var _ IdentityProvider = (*IdentityClient)(nil)

// NewIdentityClient creates a client for the provider's session-data endpoint.
func NewIdentityClient(sessionURL string) *IdentityClient {
	return &IdentityClient{
		sessionURL: sessionURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Exchange resolves sessionID into the user's identity. Transport failures
// and non-200 answers are reported as apperrors.ErrIdentityExchange.
func (c *IdentityClient) Exchange(ctx context.Context, sessionID string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create session-data request: %w", err)
	}
	req.Header.Set("X-Session-ID", sessionID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIdentityExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperrors.ErrIdentityExchange, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrIdentityExchange, resp.StatusCode)
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", apperrors.ErrIdentityExchange, err)
	}
	if identity.Email == "" || identity.SessionToken == "" {
		return nil, fmt.Errorf("%w: incomplete identity", apperrors.ErrIdentityExchange)
	}

	return &identity, nil
}
