// Package riot is the outbound client for the games API. The worker uses it
// to fetch raw champion mastery statistics per tracked summoner.
package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/flairhub/flairhub/internal/platform/errors"
	"github.com/flairhub/flairhub/internal/summoner"
)

// defaultTimeout bounds a single mastery fetch. A slow upstream call fails
// fast so one summoner cannot stall the rest of a batch.
const defaultTimeout = 10 * time.Second

// ErrFetchFailed indicates the games API rejected or failed a statistics
// fetch. The caller treats it as a per-summoner failure, not a batch failure.
var ErrFetchFailed = errors.New(errors.CodeSyncFetchFailed, "games api fetch failed")

// Config configures the games API client.
type Config struct {
	// BaseURL is the platform-routed API host, for example
	// https://na1.api.riotgames.com.
	BaseURL string
	// APIKey is sent on every request.
	APIKey string
	// HTTPClient defaults to a client with the package timeout.
	HTTPClient *http.Client
}

// Client calls the games API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a games API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("games api base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("games api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// ChampionMasteries fetches the raw champion mastery list for a puuid. All
// transport and upstream failures map to ErrFetchFailed so callers can treat
// any cause uniformly.
func (c *Client) ChampionMasteries(ctx context.Context, puuid string) ([]summoner.Mastery, error) {
	if puuid == "" {
		return nil, errors.Wrap(errors.CodeSyncFetchFailed, "games api fetch failed", fmt.Errorf("puuid is required"))
	}

	endpoint := c.baseURL + "/lol/champion-mastery/v4/champion-masteries/by-puuid/" + url.PathEscape(puuid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSyncFetchFailed, "games api fetch failed", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSyncFetchFailed, "games api fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(errors.CodeSyncFetchFailed, "games api fetch failed",
			fmt.Errorf("unexpected status %d for puuid %q", resp.StatusCode, puuid))
	}

	var payload []struct {
		ChampionID     int `json:"championId"`
		ChampionPoints int `json:"championPoints"`
		ChampionLevel  int `json:"championLevel"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(errors.CodeSyncFetchFailed, "games api fetch failed", err)
	}

	masteries := make([]summoner.Mastery, 0, len(payload))
	for _, m := range payload {
		masteries = append(masteries, summoner.Mastery{
			ChampionID: m.ChampionID,
			Points:     m.ChampionPoints,
			Level:      m.ChampionLevel,
		})
	}
	return masteries, nil
}
