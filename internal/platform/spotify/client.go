// Package spotify is a minimal client for the Spotify Web API calls the
// funnel and the auto-save worker need.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://api.spotify.com"

var OAuthEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

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
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	err := c.get(ctx, "/v1/me", &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get spotify profile: %w", err)
	}
	return &profile, nil
}

type Track struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

func (c *Client) Track(ctx context.Context, id string) (*Track, error) {
	var track Track
	err := c.get(ctx, "/v1/tracks/"+id, &track)
	if err != nil {
		return nil, fmt.Errorf("failed to get spotify track: %w", err)
	}
	return &track, nil
}

type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// ArtistAlbums returns the artist's most recent albums and singles.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string, limit int) ([]Album, error) {
	var result struct {
		Items []Album `json:"items"`
	}

	path := fmt.Sprintf("/v1/artists/%s/albums?include_groups=album,single&limit=%d", artistID, limit)
	err := c.get(ctx, path, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get artist albums: %w", err)
	}

	return result.Items, nil
}

func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	var result struct {
		Items []Track `json:"items"`
	}

	err := c.get(ctx, "/v1/albums/"+albumID+"/tracks", &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get album tracks: %w", err)
	}

	return result.Items, nil
}

// SaveTracks adds tracks to the fan's library. Already-saved tracks are a
// no-op on Spotify's side.
func (c *Client) SaveTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	path := "/v1/me/tracks?ids=" + url.QueryEscape(strings.Join(ids, ","))
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
		return fmt.Errorf("spotify save tracks returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify GET %s returned status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
