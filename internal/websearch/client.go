// Package websearch is a thin adapter over an external programmable search
// API (Google Custom Search JSON API).
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/config"
)

// ErrSearchFailed is returned on transport errors or non-2xx responses.
var ErrSearchFailed = errors.New("web search failed")

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// Result is a single web search hit.
type Result struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
}

// Client searches the programmable search engine identified by the
// configured API key and engine id.
type Client struct {
	http       *resty.Client
	apiKey     string
	engineID   string
	maxResults int
}

// NewClient creates a search client from configuration.
func NewClient(cfg config.SearchConfig) *Client {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		http:       resty.New().SetBaseURL(defaultBaseURL),
		apiKey:     cfg.APIKey,
		engineID:   cfg.EngineID,
		maxResults: maxResults,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.http.SetBaseURL(url)
}

// Search returns at most the configured number of results for the query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	var body searchResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": c.apiKey,
			"cx":  c.engineID,
			"q":   query,
			"num": strconv.Itoa(c.maxResults),
		}).
		SetResult(&body).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode(), resp.String())
	}

	results := body.Items
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}

	log.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("web search completed")

	return results, nil
}

type searchResponse struct {
	Items []Result `json:"items"`
}
