package xrpl

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "raymA4FrBEdLjJyWHX2icyFqwSbKquSTQd"

func newTestMonitor() *Monitor {
	return NewMonitor(MonitorConfig{
		Wallet:           testWallet,
		MinAmountGroup:   20,
		MinAmountPrivate: 10,
	}, NewClient())
}

func tag(v int64) *int64 { return &v }

func paymentTx(hash string, drops string, destTag *int64) Transaction {
	return Transaction{
		TransactionType: "Payment",
		Destination:     testWallet,
		DestinationTag:  destTag,
		Amount:          json.RawMessage(`"` + drops + `"`),
		Hash:            hash,
	}
}

func TestProcessTransaction_DisqualifiedInput(t *testing.T) {
	m := newTestMonitor()

	cases := []struct {
		name string
		tx   Transaction
	}{
		{"wrong type", Transaction{
			TransactionType: "OfferCreate",
			Destination:     testWallet,
			DestinationTag:  tag(100),
			Amount:          json.RawMessage(`"25000000"`),
			Hash:            "A",
		}},
		{"wrong destination", Transaction{
			TransactionType: "Payment",
			Destination:     "rSomeoneElse",
			DestinationTag:  tag(100),
			Amount:          json.RawMessage(`"25000000"`),
			Hash:            "B",
		}},
		{"missing destination tag", paymentTx("C", "25000000", nil)},
		{"zero destination tag", paymentTx("C0", "25000000", tag(0))},
		{"issued currency amount", Transaction{
			TransactionType: "Payment",
			Destination:     testWallet,
			DestinationTag:  tag(100),
			Amount:          json.RawMessage(`{"currency":"USD","value":"25"}`),
			Hash:            "D",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := m.processTransaction(tc.tx)
			assert.False(t, ok)
		})
	}
}

func TestProcessTransaction_ConvertsDropsAndClassifies(t *testing.T) {
	m := newTestMonitor()

	// 25 XRP: qualifies for both tiers.
	p, ok := m.processTransaction(paymentTx("H1", "25000000", tag(123)))
	require.True(t, ok)
	assert.Equal(t, 25.0, p.Amount)
	assert.Equal(t, "123", p.DestinationTag)
	assert.True(t, p.ValidGroup)
	assert.True(t, p.ValidPrivate)

	// 15 XRP: private only.
	p, ok = m.processTransaction(paymentTx("H2", "15000000", tag(123)))
	require.True(t, ok)
	assert.False(t, p.ValidGroup)
	assert.True(t, p.ValidPrivate)

	// 5 XRP: below both thresholds but still a payment event.
	p, ok = m.processTransaction(paymentTx("H3", "5000000", tag(123)))
	require.True(t, ok)
	assert.Equal(t, 5.0, p.Amount)
	assert.False(t, p.ValidGroup)
	assert.False(t, p.ValidPrivate)
}

func TestObserve_DeduplicatesByTxHash(t *testing.T) {
	m := newTestMonitor()
	ctx := context.Background()

	tx := paymentTx("DUP", "25000000", tag(777))
	m.Observe(ctx, tx)
	m.Observe(ctx, tx) // stream reconnect replay

	select {
	case p := <-m.payments:
		assert.Equal(t, "DUP", p.TxHash)
	case <-time.After(time.Second):
		t.Fatal("expected one payment")
	}

	select {
	case p := <-m.payments:
		t.Fatalf("replayed hash emitted a second payment: %+v", p)
	default:
	}
}

func TestObserve_DisqualifiedProducesNothing(t *testing.T) {
	m := newTestMonitor()
	m.Observe(context.Background(), Transaction{
		TransactionType: "Payment",
		Destination:     "rSomeoneElse",
		DestinationTag:  tag(1),
		Amount:          json.RawMessage(`"25000000"`),
		Hash:            "X",
	})
	assert.Empty(t, m.payments)
}

func TestTxRing_EvictsOldest(t *testing.T) {
	r := newTxRing(2)
	assert.True(t, r.add("a"))
	assert.True(t, r.add("b"))
	assert.False(t, r.add("a"))

	assert.True(t, r.add("c")) // evicts "a"
	assert.True(t, r.add("a"))
	assert.False(t, r.add("c"))
}

func TestRun_BoundedAttempts(t *testing.T) {
	m := NewMonitor(MonitorConfig{
		Wallet:         testWallet,
		WebsocketURL:   "ws://127.0.0.1:1", // nothing listening
		ReconnectDelay: 10 * time.Millisecond,
		MaxAttempts:    3,
	}, NewClient())

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 stream attempts")
}
