package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const xpmarketURL = "https://api.xpmarket.com/api/meme/pools"

// XPMarketClient fetches token launches from XPMarket, newest first.
type XPMarketClient struct {
	baseURL string
	http    *http.Client
}

func NewXPMarketClient() *XPMarketClient {
	return &XPMarketClient{
		baseURL: xpmarketURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Latest fetches the current page of launches. Order from upstream is
// requested newest-first but callers must not rely on it.
func (c *XPMarketClient) Latest(ctx context.Context, limit int) ([]Launch, error) {
	params := url.Values{
		"limit":         {strconv.Itoa(limit)},
		"offset":        {"0"},
		"sort":          {"created_at"},
		"sortDirection": {"desc"},
		"og":            {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build XPMarket request")
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", "https://xpmarket.com")
	req.Header.Set("Referer", "https://xpmarket.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "XPMarket request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("XPMarket returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Items []Launch `json:"items"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "could not decode XPMarket response")
	}

	return payload.Data.Items, nil
}
