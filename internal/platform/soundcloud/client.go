// Package soundcloud is a minimal client for the SoundCloud API calls the
// gate funnel needs: profile lookup, reposts and follows.
package soundcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://api.soundcloud.com"

var OAuthEndpoint = oauth2.Endpoint{
	AuthURL:  "https://secure.soundcloud.com/authorize",
	TokenURL: "https://secure.soundcloud.com/oauth/token",
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New wraps an OAuth-authenticated http.Client (as returned by
// oauth2.Config.Client) for a single fan or artist.
func New(httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
	}
}

// WithBaseURL overrides the API host. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type Profile struct {
	ID       int64  `json:"id"`
	URN      string `json:"urn"`
	Username string `json:"username"`
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get soundcloud profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("soundcloud /me returned status %d", resp.StatusCode)
	}

	var profile Profile
	err = json.NewDecoder(resp.Body).Decode(&profile)
	if err != nil {
		return nil, fmt.Errorf("failed to decode soundcloud profile: %w", err)
	}

	return &profile, nil
}

// Repost reposts the track to the fan's profile. SoundCloud treats a repeat
// repost as a no-op, so this doubles as the verification call.
func (c *Client) Repost(ctx context.Context, trackID string) error {
	return c.put(ctx, fmt.Sprintf("/reposts/tracks/%s", trackID))
}

// Follow follows the artist from the fan's account.
func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.put(ctx, fmt.Sprintf("/me/followings/%s", userID))
}

// IsFollowing reports whether the authenticated fan follows the given user.
func (c *Client) IsFollowing(ctx context.Context, userID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf("/me/followings/%s", userID), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("soundcloud followings check returned status %d", resp.StatusCode)
	}
}

func (c *Client) put(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("soundcloud PUT %s returned status %d", path, resp.StatusCode)
	}

	return nil
}
