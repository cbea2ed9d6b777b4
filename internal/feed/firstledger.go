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

const firstLedgerURL = "https://firstledger.net/api/v1/tokens"

// FirstLedgerClient fetches token listings from FirstLedger.
type FirstLedgerClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewFirstLedgerClient(apiKey string) *FirstLedgerClient {
	return &FirstLedgerClient{
		baseURL: firstLedgerURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Latest fetches the newest tokens, most recent first.
func (c *FirstLedgerClient) Latest(ctx context.Context, limit int) ([]Token, error) {
	params := url.Values{
		"limit":     {strconv.Itoa(limit)},
		"offset":    {"0"},
		"sort":      {"created_at"},
		"direction": {"desc"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build FirstLedger request")
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Origin", "https://firstledger.net")
	req.Header.Set("Referer", "https://firstledger.net/tokens")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "FirstLedger request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("FirstLedger returned status %d", resp.StatusCode)
	}

	var tokens []Token
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, errors.Wrap(err, "could not decode FirstLedger response")
	}
	return tokens, nil
}
