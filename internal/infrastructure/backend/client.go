// Package backend is the outbound adapter for the external application
// backend, which owns user identities and channel definitions.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Validate resolves credentials to a user profile. The bearer token path is
// tried first; on any failure it falls back to a direct id lookup. Both
// failing yields domain.ErrNoProfile: an unreachable backend is an ordinary
// "no profile" outcome, not a panic. Each path gets exactly one attempt;
// reconnecting is the client's responsibility.
func (c *Client) Validate(ctx context.Context, token string, userID domain.UserID) (*domain.UserProfile, error) {
	if token != "" {
		profile, err := c.validateToken(ctx, token)
		if err == nil {
			return profile, nil
		}
		c.logger.Debugw("token validation failed, trying id lookup", "error", err)
	}

	if userID != "" {
		profile, err := c.getUser(ctx, userID)
		if err == nil {
			return profile, nil
		}
		c.logger.Debugw("user id lookup failed", "user_id", userID, "error", err)
	}

	return nil, domain.ErrNoProfile
}

func (c *Client) validateToken(ctx context.Context, token string) (*domain.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/validate", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validate returned status %d", resp.StatusCode)
	}

	var body struct {
		User domain.UserProfile `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("malformed validate response: %w", err)
	}
	if body.User.ID == "" {
		return nil, fmt.Errorf("validate response missing user id")
	}
	return &body.User, nil
}

func (c *Client) getUser(ctx context.Context, userID domain.UserID) (*domain.UserProfile, error) {
	endpoint := c.baseURL + "/users/" + url.PathEscape(string(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user lookup returned status %d", resp.StatusCode)
	}

	var profile domain.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("malformed user response: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("user response missing id")
	}
	return &profile, nil
}

// FetchChannels retrieves the full channel directory.
func (c *Client) FetchChannels(ctx context.Context) ([]domain.ChannelDefinition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/radio/channels", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channels: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel listing returned status %d", resp.StatusCode)
	}

	var channels []domain.ChannelDefinition
	if err := json.NewDecoder(resp.Body).Decode(&channels); err != nil {
		return nil, fmt.Errorf("malformed channel listing: %w", err)
	}
	return channels, nil
}
