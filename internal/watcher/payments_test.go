package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/store"
	"innercircle-xrp-bot/internal/xrpl"
)

type recordingPaymentNotifier struct {
	confirmations []entitlement.Confirmation
	insufficient  []string
}

func (n *recordingPaymentNotifier) SendPaymentConfirmation(conf entitlement.Confirmation) error {
	n.confirmations = append(n.confirmations, conf)
	return nil
}

func (n *recordingPaymentNotifier) SendPaymentInsufficient(recipient string, _ float64) error {
	n.insufficient = append(n.insufficient, recipient)
	return nil
}

func newPaymentFixture(t *testing.T) (*PaymentHandler, *entitlement.Service, *recordingPaymentNotifier) {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	svc := entitlement.NewService(s)
	n := &recordingPaymentNotifier{}
	h := NewPaymentHandler(PaymentHandlerOptions{Entitlements: svc, Notifier: n})
	return h, svc, n
}

func payment(tag string, amount float64) xrpl.Payment {
	return xrpl.Payment{
		TxHash:         "TX-" + tag,
		Amount:         amount,
		DestinationTag: tag,
		ObservedAt:     time.Now().UTC(),
		ValidGroup:     amount >= 20,
		ValidPrivate:   amount >= 10,
	}
}

func TestHandle_GroupPaymentGrantsPremium(t *testing.T) {
	h, svc, n := newPaymentFixture(t)
	require.NoError(t, svc.RegisterGroup("555", "Test Group"))

	h.Handle(payment("555", 25))

	st, err := svc.Status("555")
	require.NoError(t, err)
	assert.Equal(t, entitlement.TierPremium, st.Tier)

	require.Len(t, n.confirmations, 1)
	assert.Equal(t, "555", n.confirmations[0].Recipient)
	assert.Equal(t, 25.0, n.confirmations[0].Amount)
	assert.Equal(t, entitlement.KindGroup, n.confirmations[0].Kind)
	assert.Empty(t, n.insufficient)
}

func TestHandle_GroupBelowGroupThreshold(t *testing.T) {
	h, svc, n := newPaymentFixture(t)
	require.NoError(t, svc.RegisterGroup("555", "Test Group"))

	// 15 XRP clears the private threshold but the recipient is a group.
	h.Handle(payment("555", 15))

	st, err := svc.Status("555")
	require.NoError(t, err)
	assert.Equal(t, entitlement.TierNone, st.Tier)
	assert.Equal(t, []string{"555"}, n.insufficient)
}

func TestHandle_InsufficientPayment(t *testing.T) {
	h, svc, n := newPaymentFixture(t)

	h.Handle(payment("777", 5))

	st, err := svc.Status("777")
	require.NoError(t, err)
	assert.Equal(t, entitlement.TierNone, st.Tier, "no state change on sub-minimum payment")
	assert.Empty(t, n.confirmations)
	assert.Equal(t, []string{"777"}, n.insufficient)
}

func TestHandle_UnknownKindDefaultsByAmount(t *testing.T) {
	h, svc, n := newPaymentFixture(t)

	h.Handle(payment("888", 12))
	require.Len(t, n.confirmations, 1)
	assert.Equal(t, entitlement.KindPrivate, n.confirmations[0].Kind)

	h.Handle(payment("999", 25))
	require.Len(t, n.confirmations, 2)
	assert.Equal(t, entitlement.KindGroup, n.confirmations[1].Kind)

	for _, id := range []string{"888", "999"} {
		st, err := svc.Status(id)
		require.NoError(t, err)
		assert.Equal(t, entitlement.TierPremium, st.Tier)
	}
}
