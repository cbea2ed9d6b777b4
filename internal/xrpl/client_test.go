package xrpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTx_FallsBackToSecondEndpoint(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{
			"TransactionType":"Payment",
			"Destination":"` + testWallet + `",
			"DestinationTag":555,
			"Amount":"25000000",
			"hash":"ABC123"
		}}`))
	}))
	defer fallback.Close()

	c := NewClient(primary.URL, fallback.URL)

	tx, err := c.Tx(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", tx.Hash)
	assert.Equal(t, testWallet, tx.Destination)
	require.NotNil(t, tx.DestinationTag)
	assert.Equal(t, int64(555), *tx.DestinationTag)
}

func TestTx_AllEndpointsFailing(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	c := NewClient(down.URL)

	_, err := c.Tx(context.Background(), "DEADBEEF")
	assert.Error(t, err)
}

func TestAMMPools_ReturnsRawResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"amm":[{"asset":{"currency":"USD"},"amount":{"value":"5000"},"lp_token":{"value":"100"}}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	raw, err := c.AMMPools(context.Background(), 10)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amm":[{"asset":{"currency":"USD"},"amount":{"value":"5000"},"lp_token":{"value":"100"}}]}`, string(raw))
}
