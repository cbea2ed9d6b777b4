package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/feed"
	"innercircle-xrp-bot/lib/helpers"
	"innercircle-xrp-bot/lib/translation"
)

// LaunchSource fetches the newest XPMarket launches.
type LaunchSource interface {
	Latest(ctx context.Context, limit int) ([]feed.Launch, error)
}

// TokenSource fetches the newest FirstLedger tokens.
type TokenSource interface {
	Latest(ctx context.Context, limit int) ([]feed.Token, error)
}

// LedgerSource fetches AMM pool listings from the ledger.
type LedgerSource interface {
	AMMPools(ctx context.Context, limit int) (json.RawMessage, error)
}

// NewBot creates new telegram bot
func NewBot(c BotConfig, d Deps) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
		Deps:   d,
	}, nil
}

// GetUpdatesChannel gets new updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// SendPhotoURL sends an image by URL with a caption, falling back to a plain
// text message when the photo send fails.
func (b *Bot) SendPhotoURL(chatID int64, photoURL, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = "MarkdownV2"
	if _, err := b.Bot.Send(photo); err != nil {
		log.Debugf("photo send to %d failed, falling back to text: %v", chatID, err)
		return b.SendMessage(Message{ChatID: chatID, Text: caption})
	}
	return nil
}

// HandleUpdate processes Telegram updates
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	text := helpers.EscapeMarkdownV2(translation.Translate("Use /menu to see available commands."))
	log.Debugf("received command: %s", u.Message.Command())

	chatID := u.Message.Chat.ID
	recipient := strconv.FormatInt(chatID, 10)
	isGroup := u.Message.Chat.IsGroup() || u.Message.Chat.IsSuperGroup()

	if isGroup {
		if err := b.Deps.Entitlements.RegisterGroup(recipient, u.Message.Chat.Title); err != nil {
			log.Errorf("could not register group %s: %v", recipient, err)
		}
	}

	switch u.Message.Command() {
	case "menu", "start", "help":
		text = menuText()
	case "stop":
		text = b.commandStop(recipient)
	case "upgrade":
		text = b.commandUpgrade(recipient, isGroup)
	case "trial":
		text = b.commandTrial(recipient)
	case "subscription":
		text = b.commandSubscription(recipient)
	case "check":
		b.commandCheck(chatID, u.Message.MessageID)
		return ""
	case "verify":
		text = b.commandVerify(strings.TrimSpace(u.Message.CommandArguments()))
	case "filter":
		text = helpers.EscapeMarkdownV2(translation.Translate(
			"Filter settings:\n\nComing soon! This feature will allow you to filter alerts by market cap, volume and number of holders."))
	case "setkeywords":
		text = b.commandSetKeywords(recipient, u.Message.CommandArguments())
	}

	return text
}

// HandleGroupJoin records a chat the bot was just added to and returns the
// welcome text.
func (b *Bot) HandleGroupJoin(chat *tgbotapi.Chat) string {
	recipient := strconv.FormatInt(chat.ID, 10)
	if err := b.Deps.Entitlements.RegisterGroup(recipient, chat.Title); err != nil {
		log.Errorf("could not register group %s: %v", recipient, err)
	}
	return fmt.Sprintf(
		"👋 %s\n\n%s",
		helpers.EscapeMarkdownV2(fmt.Sprintf(translation.Translate("Thanks for adding me to %s!"), chat.Title)),
		menuText(),
	)
}

func menuText() string {
	return "🚀 *InnerCircleXRPBOT Menu*\n\n" +
		"🔹 `/menu` \\- Show this menu\n" +
		"🔹 `/start` \\- Show this menu\n" +
		"🔹 `/stop` \\- Stop receiving alerts\n" +
		"🔹 `/upgrade` \\- Upgrade to premium\n" +
		"🔹 `/trial` \\- Activate 24\\-hour free trial\n" +
		"🔹 `/check` \\- Manually check latest tokens\n" +
		"🔹 `/verify` \\- Verify a payment by transaction hash\n" +
		"🔹 `/filter` \\- Set filtering options\n" +
		"🔹 `/setkeywords` \\- Set keyword tracking\n" +
		"🔹 `/subscription` \\- Check premium status\n" +
		"🔹 `/help` \\- Show command list"
}

func (b *Bot) commandStop(recipient string) string {
	if err := b.Deps.Entitlements.Revoke(recipient); err != nil {
		log.Errorf("could not revoke %s: %v", recipient, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Something went wrong. Please try again later."))
	}
	return helpers.EscapeMarkdownV2(translation.Translate("You have stopped receiving alerts. Use /upgrade to re-enable premium."))
}

func (b *Bot) commandUpgrade(recipient string, isGroup bool) string {
	status, err := b.Deps.Entitlements.Status(recipient)
	if err == nil && status.Tier == entitlement.TierPremium {
		return helpers.EscapeMarkdownV2(translation.Translate("You already have premium status!"))
	}

	price := b.Config.MinAmountPrivate
	audience := translation.Translate("Receive real-time alerts in private chat")
	if isGroup {
		price = b.Config.MinAmountGroup
		audience = translation.Translate("Upgrade this group to real-time alerts")
	}

	return fmt.Sprintf(
		"🌟 *%s*\n\n"+
			"✅ *%s XRP* \\- %s\n"+
			"🚀 %s `%s`\n"+
			"📌 %s `%s`\n\n"+
			"%s",
		helpers.EscapeMarkdownV2(translation.Translate("Premium Upgrade Options")),
		helpers.FormatXRP(price, true),
		helpers.EscapeMarkdownV2(audience),
		helpers.EscapeMarkdownV2(translation.Translate("Send XRP to:")),
		helpers.EscapeMarkdownV2(b.Config.Wallet),
		helpers.EscapeMarkdownV2(translation.Translate("Destination Tag:")),
		recipient,
		helpers.EscapeMarkdownV2(translation.Translate("Your upgrade activates automatically upon payment. Use /subscription to check your status.")),
	)
}

func (b *Bot) commandTrial(recipient string) string {
	rec, err := b.Deps.Entitlements.ActivateTrial(recipient)
	switch {
	case errors.Is(err, entitlement.ErrAlreadyPremium):
		return helpers.EscapeMarkdownV2(translation.Translate("You already have a premium subscription!"))
	case errors.Is(err, entitlement.ErrTrialAlreadyUsed):
		return helpers.EscapeMarkdownV2(translation.Translate("You have already used your trial period."))
	case err != nil:
		log.Errorf("could not activate trial for %s: %v", recipient, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Something went wrong. Please try again later."))
	}

	return fmt.Sprintf(
		"✅ %s\n%s",
		helpers.EscapeMarkdownV2(fmt.Sprintf(
			translation.Translate("Trial activated! You will receive alerts until %s."),
			rec.ExpiresAt.Format("2006-01-02 15:04 MST"),
		)),
		helpers.EscapeMarkdownV2(translation.Translate("Use /upgrade to get permanent access.")),
	)
}

func (b *Bot) commandSubscription(recipient string) string {
	status, err := b.Deps.Entitlements.Status(recipient)
	if err != nil {
		log.Errorf("could not load status for %s: %v", recipient, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Something went wrong. Please try again later."))
	}

	switch status.Tier {
	case entitlement.TierPremium:
		expiry := translation.Translate("Never")
		if status.ExpiresAt != nil {
			expiry = status.ExpiresAt.Format("2006-01-02 15:04 MST")
		}
		return fmt.Sprintf(
			"✅ *%s*\n%s %s\n%s `%s`",
			helpers.EscapeMarkdownV2(translation.Translate("Premium Active")),
			helpers.EscapeMarkdownV2(translation.Translate("Expires:")),
			helpers.EscapeMarkdownV2(expiry),
			helpers.EscapeMarkdownV2(translation.Translate("Chat ID:")),
			recipient,
		)
	case entitlement.TierTrial:
		return fmt.Sprintf(
			"⏳ *%s*\n%s %s\n%s `%s`",
			helpers.EscapeMarkdownV2(translation.Translate("Trial Active")),
			helpers.EscapeMarkdownV2(translation.Translate("Expires:")),
			helpers.EscapeMarkdownV2(status.ExpiresAt.Format("2006-01-02 15:04 MST")),
			helpers.EscapeMarkdownV2(translation.Translate("Chat ID:")),
			recipient,
		)
	default:
		return fmt.Sprintf(
			"❌ %s\n%s `%s`\n%s",
			helpers.EscapeMarkdownV2(translation.Translate("No active subscription")),
			helpers.EscapeMarkdownV2(translation.Translate("Your Chat ID:")),
			recipient,
			helpers.EscapeMarkdownV2(translation.Translate("Use /upgrade to activate premium")),
		)
	}
}

// commandCheck fetches the latest projects across all sources and renders
// them into the chat. Sends its own messages because launches go out one by
// one with their logos.
func (b *Bot) commandCheck(chatID int64, replyTo int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	launches, err := b.Deps.Launches.Latest(ctx, 10)
	if err != nil {
		log.Errorf("manual check failed: %v", err)
		_ = b.SendMessage(Message{
			ChatID:    chatID,
			MessageID: replyTo,
			Text:      helpers.EscapeMarkdownV2(translation.Translate("Could not fetch projects right now. Please try again later.")),
		})
		return
	}
	if len(launches) == 0 {
		_ = b.SendMessage(Message{
			ChatID:    chatID,
			MessageID: replyTo,
			Text:      helpers.EscapeMarkdownV2(translation.Translate("No new projects found at this time.")),
		})
		return
	}

	header := "📊 *" + helpers.EscapeMarkdownV2(translation.Translate("Latest XRP Projects")) + "*"
	if err := b.SendMessage(Message{ChatID: chatID, MessageID: replyTo, Text: header}); err != nil {
		log.Errorf("could not send check header: %v", err)
	}

	limit := 5
	if len(launches) < limit {
		limit = len(launches)
	}
	for _, launch := range launches[:limit] {
		caption := FormatLaunchAlert(launch)
		if launch.Logo != "" {
			if err := b.SendPhotoURL(chatID, launch.Logo, caption); err != nil {
				log.Errorf("could not send project %s: %v", launch.Title, err)
			}
			continue
		}
		if err := b.SendMessage(Message{ChatID: chatID, Text: caption}); err != nil {
			log.Errorf("could not send project %s: %v", launch.Title, err)
		}
	}

	if summary := b.sourcesSummary(ctx); summary != "" {
		if err := b.SendMessage(Message{ChatID: chatID, Text: summary}); err != nil {
			log.Errorf("could not send sources summary: %v", err)
		}
	}
}

// sourcesSummary reports what the secondary feeds are seeing. Both are
// best-effort; a failing source is simply left out.
func (b *Bot) sourcesSummary(ctx context.Context) string {
	var lines []string

	if tokens, err := b.Deps.Tokens.Latest(ctx, 10); err != nil {
		log.Debugf("FirstLedger check failed: %v", err)
	} else if len(tokens) > 0 {
		lines = append(lines, fmt.Sprintf(
			translation.Translate("FirstLedger: %d recent tokens, newest %s"),
			len(tokens), tokens[0].Name,
		))
	}

	if raw, err := b.Deps.Ledger.AMMPools(ctx, 10); err != nil {
		log.Debugf("AMM check failed: %v", err)
	} else if pools, err := feed.ParseAMMPools(raw); err == nil && len(pools) > 0 {
		lines = append(lines, fmt.Sprintf(
			translation.Translate("AMM: %d pools, e.g. %s/%s"),
			len(pools), pools[0].TokenA, pools[0].TokenB,
		))
	}

	if len(lines) == 0 {
		return ""
	}
	return helpers.EscapeMarkdownV2(translation.Translate("Also tracking:") + "\n" + strings.Join(lines, "\n"))
}

// commandVerify feeds a specific transaction through the payment pipeline.
// Recovery path for a payment the stream missed.
func (b *Bot) commandVerify(txHash string) string {
	if txHash == "" {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /verify <transaction hash>"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.Deps.Payments.VerifyPayment(ctx, txHash); err != nil {
		log.Errorf("manual verification of %s failed: %v", txHash, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Could not verify that transaction. Check the hash and try again."))
	}
	return helpers.EscapeMarkdownV2(translation.Translate("Transaction checked. If it qualifies, your upgrade confirmation arrives shortly."))
}

func (b *Bot) commandSetKeywords(recipient, args string) string {
	words := strings.Fields(args)
	if len(words) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /setkeywords <word> [word ...]"))
	}

	raw, err := json.Marshal(words)
	if err == nil {
		err = b.Deps.Entitlements.SetKeywords(recipient, raw)
	}
	if err != nil {
		log.Errorf("could not save keywords for %s: %v", recipient, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Something went wrong. Please try again later."))
	}
	return helpers.EscapeMarkdownV2(fmt.Sprintf(
		translation.Translate("Tracking %d keywords."), len(words),
	))
}
