package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultEndpoints are the JSON-RPC endpoints tried in order; the second is
// the fallback when the first times out or errors.
var DefaultEndpoints = []string{
	"https://xrplcluster.com/",
	"https://s1.ripple.com:51234/",
}

// Client talks JSON-RPC to XRPL HTTP endpoints.
type Client struct {
	endpoints []string
	http      *http.Client
}

// NewClient creates a client over the given endpoints, falling back to
// DefaultEndpoints when none are provided.
func NewClient(endpoints ...string) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Tx looks up a single transaction by hash. Used for manual recovery of a
// payment the stream missed.
func (c *Client) Tx(ctx context.Context, txHash string) (*Transaction, error) {
	result, err := c.call(ctx, rpcRequest{
		Method: "tx",
		Params: []map[string]interface{}{{
			"transaction": txHash,
			"binary":      false,
		}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not look up transaction %s", txHash)
	}

	var tx Transaction
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, errors.Wrapf(err, "could not decode transaction %s", txHash)
	}
	return &tx, nil
}

// AMMPools fetches the latest AMM pool listing, falling back to the secondary
// endpoint before giving up.
func (c *Client) AMMPools(ctx context.Context, limit int) (json.RawMessage, error) {
	return c.call(ctx, rpcRequest{
		Method: "amm_info",
		Params: []map[string]interface{}{{
			"ledger_index": "validated",
			"limit":        limit,
		}},
	})
}

// call posts the request to each endpoint in order and returns the first
// successful result.
func (c *Client) call(ctx context.Context, req rpcRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode rpc request")
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("User-Agent", "InnerCircleXRPBot/1.0")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			log.Debugf("rpc %s via %s failed: %v", req.Method, endpoint, err)
			lastErr = err
			continue
		}

		var decoded rpcResponse
		err = json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = errors.Errorf("rpc %s via %s: status %d", req.Method, endpoint, resp.StatusCode)
			continue
		}
		return decoded.Result, nil
	}

	return nil, errors.Wrapf(lastErr, "all %d endpoints failed for %s", len(c.endpoints), req.Method)
}
