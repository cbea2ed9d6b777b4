package xrpl

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// seenCapacity bounds the processed tx-hash window. Reconnect replay from the
// stream never reaches further back than this.
const seenCapacity = 100

// MonitorConfig configures payment observation.
type MonitorConfig struct {
	// Wallet is the receiving address; payments to anything else are ignored.
	Wallet string
	// MinAmountGroup and MinAmountPrivate are tier thresholds in XRP.
	MinAmountGroup   float64
	MinAmountPrivate float64
	// WebsocketURL is the transaction stream endpoint.
	WebsocketURL string
	// ReconnectDelay is the fixed wait between stream attempts.
	ReconnectDelay time.Duration
	// MaxAttempts bounds connection attempts. Zero means retry forever,
	// which is the production setting.
	MaxAttempts int
}

// Monitor observes the ledger stream and emits validated payments on a typed
// channel, at most once per tx hash.
type Monitor struct {
	cfg      MonitorConfig
	client   *Client
	payments chan Payment
	seen     *txRing
}

// NewMonitor creates a payment monitor. The client is used for manual
// transaction lookups; it may share endpoints with other callers.
func NewMonitor(cfg MonitorConfig, client *Client) *Monitor {
	if cfg.WebsocketURL == "" {
		cfg.WebsocketURL = "wss://xrplcluster.com"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Monitor{
		cfg:      cfg,
		client:   client,
		payments: make(chan Payment, 64),
		seen:     newTxRing(seenCapacity),
	}
}

// Payments is the single output of the monitor: one producer, consumed by the
// payment handler.
func (m *Monitor) Payments() <-chan Payment {
	return m.payments
}

// Run connects to the transaction stream and keeps it alive until the context
// is cancelled. Stream failures are never fatal; the monitor waits the fixed
// reconnect delay and dials again. Missed transactions are not replayed.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.payments)

	for attempt := 1; ; attempt++ {
		if err := m.streamOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Errorf("XRPL stream error: %v", err)
		}

		if m.cfg.MaxAttempts > 0 && attempt >= m.cfg.MaxAttempts {
			return errors.Errorf("gave up after %d stream attempts", attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.ReconnectDelay):
		}
	}
}

// streamOnce dials the websocket, subscribes to the wallet's transactions and
// processes frames until the connection drops.
func (m *Monitor) streamOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.cfg.WebsocketURL, nil)
	if err != nil {
		return errors.Wrap(err, "could not dial XRPL websocket")
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"command":  "subscribe",
		"streams":  []string{"transactions"},
		"accounts": []string{m.cfg.Wallet},
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(sub); err != nil {
		return errors.Wrap(err, "could not subscribe to transaction stream")
	}

	log.Info("connected to XRPL websocket")

	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "stream read failed")
		}
		if msg.Transaction == nil {
			continue
		}
		m.Observe(ctx, *msg.Transaction)
	}
}

// Observe runs one transaction through filter, conversion and dedup, emitting
// a Payment when it qualifies. Shared by the stream and the manual verify
// path. Per-transaction problems are logged and skipped.
func (m *Monitor) Observe(ctx context.Context, tx Transaction) {
	payment, ok := m.processTransaction(tx)
	if !ok {
		return
	}
	if !m.seen.add(payment.TxHash) {
		log.Debugf("duplicate transaction %s ignored", payment.TxHash)
		return
	}

	select {
	case m.payments <- *payment:
	case <-ctx.Done():
	}
}

// VerifyPayment fetches a specific transaction and feeds it through the same
// pipeline as the stream. Manual recovery for a payment the stream missed.
func (m *Monitor) VerifyPayment(ctx context.Context, txHash string) error {
	tx, err := m.client.Tx(ctx, txHash)
	if err != nil {
		return err
	}
	m.Observe(ctx, *tx)
	return nil
}

// processTransaction decides whether a raw transaction is a qualifying
// payment. Disqualified input is dropped silently; only malformed amounts on
// otherwise-qualifying payments are logged.
func (m *Monitor) processTransaction(tx Transaction) (*Payment, bool) {
	if tx.TransactionType != "Payment" {
		return nil, false
	}
	if tx.Destination != m.cfg.Wallet {
		return nil, false
	}
	if tx.DestinationTag == nil || *tx.DestinationTag == 0 {
		// No usable tag means no way to attribute the payment to a
		// recipient; zero is not a real chat id.
		return nil, false
	}

	var drops string
	if err := json.Unmarshal(tx.Amount, &drops); err != nil {
		// Issued-currency amount; not an XRP payment.
		return nil, false
	}
	dropsValue, err := strconv.ParseFloat(drops, 64)
	if err != nil {
		log.Errorf("unparseable amount %q in transaction %s", drops, tx.Hash)
		return nil, false
	}
	amount := dropsValue / dropsPerXRP

	return &Payment{
		TxHash:         tx.Hash,
		Amount:         amount,
		DestinationTag: strconv.FormatInt(*tx.DestinationTag, 10),
		ObservedAt:     time.Now().UTC(),
		ValidGroup:     amount >= m.cfg.MinAmountGroup,
		ValidPrivate:   amount >= m.cfg.MinAmountPrivate,
	}, true
}

// txRing is a bounded set of recently processed tx hashes.
type txRing struct {
	order []string
	set   map[string]struct{}
	cap   int
}

func newTxRing(capacity int) *txRing {
	return &txRing{
		set: make(map[string]struct{}, capacity),
		cap: capacity,
	}
}

// add records a hash, reporting false when it was already present. The oldest
// hash is evicted once the ring is full.
func (r *txRing) add(hash string) bool {
	if _, dup := r.set[hash]; dup {
		return false
	}
	if len(r.order) >= r.cap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.set, oldest)
	}
	r.order = append(r.order, hash)
	r.set[hash] = struct{}{}
	return true
}
