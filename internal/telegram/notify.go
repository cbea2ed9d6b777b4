package telegram

import (
	"strconv"

	"github.com/pkg/errors"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/feed"
)

// The bot is the Notifier for both the launch watcher and the payment
// handler. Recipient ids are chat ids in string form.

// SendLaunchAlert delivers one launch alert to one recipient, preferring the
// launch logo as a photo caption.
func (b *Bot) SendLaunchAlert(recipient string, launch feed.Launch) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad recipient id %q", recipient)
	}

	caption := FormatLaunchAlert(launch)
	if launch.Logo != "" {
		return b.SendPhotoURL(chatID, launch.Logo, caption)
	}
	return b.SendMessage(Message{ChatID: chatID, Text: caption})
}

// SendPaymentConfirmation thanks the payer and states the new status.
func (b *Bot) SendPaymentConfirmation(conf entitlement.Confirmation) error {
	chatID, err := strconv.ParseInt(conf.Recipient, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad recipient id %q", conf.Recipient)
	}
	return b.SendMessage(Message{ChatID: chatID, Text: formatPaymentConfirmation(conf)})
}

// SendPaymentInsufficient informs the payer the amount was below threshold.
func (b *Bot) SendPaymentInsufficient(recipient string, amount float64) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad recipient id %q", recipient)
	}
	return b.SendMessage(Message{ChatID: chatID, Text: formatPaymentInsufficient(amount)})
}
