package watcher

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/xrpl"
)

// PaymentNotifier renders payment outcomes back to the paying recipient.
type PaymentNotifier interface {
	SendPaymentConfirmation(conf entitlement.Confirmation) error
	SendPaymentInsufficient(recipient string, amount float64) error
}

// PaymentHandlerOptions wires a PaymentHandler.
type PaymentHandlerOptions struct {
	Entitlements *entitlement.Service
	Notifier     PaymentNotifier
	// PaymentsProcessed is incremented per granted upgrade. Optional.
	PaymentsProcessed prometheus.Counter
}

// PaymentHandler is the single consumer of the payment monitor's channel. It
// resolves the recipient's chat kind, grants premium for qualifying amounts
// and answers sub-minimum payments with an informational message.
type PaymentHandler struct {
	opts PaymentHandlerOptions
}

func NewPaymentHandler(opts PaymentHandlerOptions) *PaymentHandler {
	return &PaymentHandler{opts: opts}
}

// Run consumes payments until the channel closes or the context is
// cancelled. Per-payment failures are logged and skipped.
func (h *PaymentHandler) Run(ctx context.Context, payments <-chan xrpl.Payment) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payment, ok := <-payments:
			if !ok {
				return nil
			}
			h.Handle(payment)
		}
	}
}

// Handle applies one validated payment to entitlement state.
func (h *PaymentHandler) Handle(payment xrpl.Payment) {
	recipient := payment.DestinationTag
	kind, qualifies := h.classify(recipient, payment)

	if !qualifies {
		log.Infof("payment %s of %.2f XRP below threshold for %s", payment.TxHash, payment.Amount, recipient)
		if err := h.opts.Notifier.SendPaymentInsufficient(recipient, payment.Amount); err != nil {
			log.Errorf("could not send insufficient-payment notice to %s: %v", recipient, err)
		}
		return
	}

	conf, err := h.opts.Entitlements.GrantPremium(recipient, payment.Amount, kind)
	if err != nil {
		log.Errorf("could not grant premium to %s for tx %s: %v", recipient, payment.TxHash, err)
		return
	}
	if h.opts.PaymentsProcessed != nil {
		h.opts.PaymentsProcessed.Inc()
	}

	if err := h.opts.Notifier.SendPaymentConfirmation(conf); err != nil {
		log.Errorf("could not send payment confirmation to %s: %v", recipient, err)
	}
}

// classify picks the tier kind for a payment. A recipient known to be a
// group must clear the group threshold; a known private chat the private
// one. When the kind is unknown the amount decides: group-sized payments
// grant group tier, otherwise the private threshold applies.
func (h *PaymentHandler) classify(recipient string, payment xrpl.Payment) (entitlement.Kind, bool) {
	switch h.opts.Entitlements.KindOf(recipient) {
	case entitlement.KindGroup:
		return entitlement.KindGroup, payment.ValidGroup
	case entitlement.KindPrivate:
		return entitlement.KindPrivate, payment.ValidPrivate
	default:
		if payment.ValidGroup {
			return entitlement.KindGroup, true
		}
		return entitlement.KindPrivate, payment.ValidPrivate
	}
}
