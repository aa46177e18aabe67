// Package marketdata provides per-ticker daily bar history, news metadata,
// and option-chain snapshots from a Yahoo-style quote API.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/rewired-gh/catalystwatch/internal/fetch"
	"github.com/rewired-gh/catalystwatch/internal/models"
)

// ErrNoData reports that the provider has no usable history for a ticker.
// Callers skip the ticker; absence of data is never fatal.
var ErrNoData = errors.New("no data for ticker")

// Client fetches per-ticker market data.
type Client struct {
	chartURL   string // GET {chartURL}/{ticker}?range=Nd&interval=1d
	optionsURL string // GET {optionsURL}/{ticker}
	searchURL  string // GET {searchURL}?q={ticker}&newsCount=N
	fetcher    *fetch.Client
	now        func() time.Time
}

// NewClient creates a market-data client on top of the retrying fetcher.
func NewClient(chartURL, optionsURL, searchURL string, fetcher *fetch.Client) *Client {
	return &Client{
		chartURL:   chartURL,
		optionsURL: optionsURL,
		searchURL:  searchURL,
		fetcher:    fetcher,
		now:        time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// History returns up to days daily bars for ticker, date-ascending. Bars with
// a missing close are dropped the way the provider's own consumers drop NaNs.
func (c *Client) History(ctx context.Context, ticker models.Ticker, days int) (models.PriceVolumeSeries, error) {
	u := fmt.Sprintf("%s/%s?range=%dd&interval=1d", c.chartURL, ticker, days)
	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: history fetch failed: %w", ticker, err)
	}
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: failed to decode history: %w", ticker, err)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var series models.PriceVolumeSeries
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := models.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		series = append(series, bar)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

type searchResponse struct {
	News []struct {
		ProviderPublishTime int64 `json:"providerPublishTime"`
	} `json:"news"`
}

// RecentNewsCount returns the number of news items published within the
// trailing window, using provider-supplied publish timestamps. Failures
// degrade to zero.
func (c *Client) RecentNewsCount(ctx context.Context, ticker models.Ticker, window time.Duration) int {
	u := fmt.Sprintf("%s?q=%s&newsCount=20", c.searchURL, url.QueryEscape(string(ticker)))
	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		return 0
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0
	}
	cutoff := c.now().Add(-window)
	count := 0
	for _, n := range resp.News {
		if n.ProviderPublishTime == 0 {
			continue
		}
		if time.Unix(n.ProviderPublishTime, 0).After(cutoff) {
			count++
		}
	}
	return count
}

// Quote is the quiet-gate input: last close and trailing average daily share
// volume over the requested history window.
type Quote struct {
	LastClose   float64
	AvgVolume   float64
	HistoryDays int
}

// GetQuote derives the quiet-gate inputs from daily history.
func (c *Client) GetQuote(ctx context.Context, ticker models.Ticker, days int) (Quote, error) {
	series, err := c.History(ctx, ticker, days)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		LastClose:   series.LastClose(),
		AvgVolume:   series.AverageVolume(),
		HistoryDays: days,
	}, nil
}

type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				ExpirationDate int64 `json:"expirationDate"`
				Calls          []struct {
					Volume *int64 `json:"volume"`
				} `json:"calls"`
				Puts []struct {
					Volume *int64 `json:"volume"`
				} `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

// Options returns the option snapshot for ticker, summing call/put volume
// over the nearestN expiries. Missing volume columns count as zero. A ticker
// without listed options yields HasOptions=false, not an error.
func (c *Client) Options(ctx context.Context, ticker models.Ticker, nearestN int) (models.OptionsSnapshot, error) {
	var snap models.OptionsSnapshot

	base, err := c.fetchChain(ctx, fmt.Sprintf("%s/%s", c.optionsURL, ticker))
	if err != nil {
		return snap, fmt.Errorf("%s: options fetch failed: %w", ticker, err)
	}
	if base == nil || len(base.ExpirationDates) == 0 {
		return snap, nil
	}

	dates := append([]int64(nil), base.ExpirationDates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	snap.HasOptions = true
	for _, d := range dates {
		snap.Expiries = append(snap.Expiries, time.Unix(d, 0).UTC().Format("2006-01-02"))
	}

	for i, d := range dates {
		if i >= nearestN {
			break
		}
		chain := base
		if len(chain.Options) == 0 || chain.Options[0].ExpirationDate != d {
			chain, err = c.fetchChain(ctx, fmt.Sprintf("%s/%s?date=%d", c.optionsURL, ticker, d))
			if err != nil || chain == nil || len(chain.Options) == 0 {
				// One unloadable expiry layer does not spoil the rest.
				continue
			}
		}
		opt := chain.Options[0]
		ev := models.ExpiryVolume{Expiry: time.Unix(d, 0).UTC().Format("2006-01-02")}
		for _, call := range opt.Calls {
			if call.Volume != nil {
				ev.CallsVolume += *call.Volume
			}
		}
		for _, put := range opt.Puts {
			if put.Volume != nil {
				ev.PutsVolume += *put.Volume
			}
		}
		snap.ByExpiry = append(snap.ByExpiry, ev)
		snap.TotalVolume += ev.CallsVolume + ev.PutsVolume
	}
	return snap, nil
}

type chainResult struct {
	ExpirationDates []int64
	Options         []struct {
		ExpirationDate int64 `json:"expirationDate"`
		Calls          []struct {
			Volume *int64 `json:"volume"`
		} `json:"calls"`
		Puts []struct {
			Volume *int64 `json:"volume"`
		} `json:"puts"`
	}
}

func (c *Client) fetchChain(ctx context.Context, u string) (*chainResult, error) {
	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	var resp optionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode option chain: %w", err)
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, nil
	}
	r := resp.OptionChain.Result[0]
	return &chainResult{ExpirationDates: r.ExpirationDates, Options: r.Options}, nil
}
