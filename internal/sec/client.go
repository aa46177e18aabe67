// Package sec queries the SEC full-text search index for spin-off
// registrations and recent filing density.
package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rewired-gh/catalystwatch/internal/fetch"
	"github.com/rewired-gh/catalystwatch/internal/logger"
	"github.com/rewired-gh/catalystwatch/internal/models"
)

// Client talks to the search-index endpoint.
type Client struct {
	searchURL string
	fetcher   *fetch.Client
	now       func() time.Time
}

// NewClient creates a SEC search client on top of the retrying fetcher.
func NewClient(searchURL string, fetcher *fetch.Client) *Client {
	return &Client{searchURL: searchURL, fetcher: fetcher, now: time.Now}
}

type searchQuery struct {
	Query     queryString `json:"query"`
	From      int         `json:"from"`
	Size      int         `json:"size"`
	Sort      []sortField `json:"sort"`
	Highlight bool        `json:"highlight"`
}

type queryString struct {
	QueryString struct {
		Query string `json:"query"`
	} `json:"query_string"`
}

type sortField map[string]map[string]string

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source struct {
				Ticker string `json:"ticker"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func newQuery(query string, size int) searchQuery {
	q := searchQuery{
		From:      0,
		Size:      size,
		Sort:      []sortField{{"filedAt": {"order": "desc"}}},
		Highlight: false,
	}
	q.Query.QueryString.Query = query
	return q
}

// SpinoffTickers returns tickers from 10-12B registrations filed within the
// last daysBack days. Failures after retries yield an error the aggregator
// treats as an empty contribution.
func (c *Client) SpinoffTickers(ctx context.Context, daysBack int) ([]models.Ticker, error) {
	since := c.now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
	q := newQuery(fmt.Sprintf(`formType:"10-12B" AND filedAt:>=%s`, since), 200)

	body, err := c.fetcher.PostJSON(ctx, c.searchURL, q)
	if err != nil {
		return nil, fmt.Errorf("spin-off search failed: %w", err)
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode spin-off search response: %w", err)
	}

	seen := make(map[models.Ticker]bool)
	var tickers []models.Ticker
	for _, h := range resp.Hits.Hits {
		raw := h.Source.Ticker
		if raw == "" || raw == "N/A" {
			continue
		}
		t, ok := models.NormalizeTicker(raw)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	return tickers, nil
}

// RecentFilingsCount returns the number of 8-K/6-K filings for ticker inside
// the trailing window. Any failure degrades to zero; filing density is a
// best-effort signal.
func (c *Client) RecentFilingsCount(ctx context.Context, ticker models.Ticker, window time.Duration) int {
	cutoff := c.now().UTC().Add(-window).Format("2006-01-02T15:04:05")
	q := newQuery(fmt.Sprintf(`ticker:"%s" AND filedAt:>=%s AND (formType:"8-K" OR formType:"6-K")`, ticker, cutoff), 50)

	body, err := c.fetcher.PostJSON(ctx, c.searchURL, q)
	if err != nil {
		logger.Debug("%s: filing density query failed: %v", ticker, err)
		return 0
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Debug("%s: failed to decode filing density response: %v", ticker, err)
		return 0
	}
	return resp.Hits.Total.Value
}
