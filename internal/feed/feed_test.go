package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPMarketLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "created_at", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("sortDirection"))

		w.Write([]byte(`{"data":{"items":[
			{"id":103,"title":"Moon Token","ticker":"MOON","price":"0.000000004512","liquidity":"1200","holders":42,"address":"rMOON","created_at":"2025-01-01T00:00:00Z","logo":"https://cdn/moon.png","priceChange":12.5},
			{"id":101,"title":"Dust","ticker":"DST","price":"0.0001","liquidity":"300","holders":7,"address":"rDST","created_at":"2025-01-01T00:01:00Z"}
		]}}`))
	}))
	defer srv.Close()

	c := NewXPMarketClient()
	c.baseURL = srv.URL

	launches, err := c.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, launches, 2)

	assert.Equal(t, int64(103), launches[0].ID)
	assert.Equal(t, "Moon Token", launches[0].Title)
	assert.Equal(t, int64(42), launches[0].Holders)
	require.NotNil(t, launches[0].PriceChange)
	assert.Equal(t, 12.5, *launches[0].PriceChange)
	assert.Nil(t, launches[1].PriceChange)
}

func TestXPMarketLatest_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewXPMarketClient()
	c.baseURL = srv.URL

	_, err := c.Latest(context.Background(), 10)
	assert.Error(t, err)
}

func TestFirstLedgerLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"name":"TokenOne","website":"https://one.example","twitter":"one"}]`))
	}))
	defer srv.Close()

	c := NewFirstLedgerClient("test-key")
	c.baseURL = srv.URL

	tokens, err := c.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "TokenOne", tokens[0].Name)
}

func TestParseAMMPools(t *testing.T) {
	raw := json.RawMessage(`{"amm":[
		{"asset":{"currency":"USD"},"amount":{"value":"5000"},"lp_token":{"value":"100"}},
		{"asset":{},"amount":{"value":"1"},"lp_token":{"value":"2"}}
	]}`)

	pools, err := ParseAMMPools(raw)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "USD", pools[0].TokenA)
	assert.Equal(t, "XRP", pools[0].TokenB)
	assert.Equal(t, "5000", pools[0].LiquidityA)
	assert.Equal(t, "Unknown", pools[1].TokenA)
}
