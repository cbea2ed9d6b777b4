package telegram

import (
	"fmt"
	"strings"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/feed"
	"innercircle-xrp-bot/lib/helpers"
	"innercircle-xrp-bot/lib/translation"
)

// FormatLaunchAlert renders one launch into a MarkdownV2 alert body, used
// both for pushed alerts and the manual /check listing.
func FormatLaunchAlert(launch feed.Launch) string {
	var sb strings.Builder

	sb.WriteString("🚨 *" + helpers.EscapeMarkdownV2(translation.Translate("New Token Launch Alert!")) + "* 🚨\n\n")
	sb.WriteString(fmt.Sprintf("🎯 *%s* \\(%s\\)\n",
		helpers.EscapeMarkdownV2(launch.Title),
		helpers.EscapeMarkdownV2(launch.Ticker),
	))

	if launch.Twitter != "" {
		sb.WriteString("🐦 Twitter: @" + helpers.EscapeMarkdownV2(launch.Twitter) + "\n")
	}

	if price, err := launch.Price.Float64(); err == nil {
		sb.WriteString(fmt.Sprintf("💰 %s %s XRP\n",
			helpers.EscapeMarkdownV2(translation.Translate("Price:")),
			helpers.FormatXRP(price, true),
		))
	}
	if launch.Liquidity != "" {
		sb.WriteString(fmt.Sprintf("💧 %s %s XRP\n",
			helpers.EscapeMarkdownV2(translation.Translate("Liquidity:")),
			helpers.EscapeMarkdownV2(launch.Liquidity.String()),
		))
	}
	sb.WriteString(fmt.Sprintf("👥 %s %s\n",
		helpers.EscapeMarkdownV2(translation.Translate("Holders:")),
		helpers.FormatCount(launch.Holders),
	))

	if launch.PriceChange != nil {
		emoji := "📈"
		if *launch.PriceChange < 0 {
			emoji = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s%%\n",
			emoji,
			helpers.EscapeMarkdownV2(translation.Translate("Change:")),
			helpers.EscapeMarkdownV2(fmt.Sprintf("%.2f", *launch.PriceChange)),
		))
	}

	sb.WriteString(fmt.Sprintf("📍 %s `%s`\n",
		helpers.EscapeMarkdownV2(translation.Translate("Address:")),
		helpers.EscapeMarkdownV2(launch.Address),
	))
	sb.WriteString(fmt.Sprintf("\n⏰ %s %s",
		helpers.EscapeMarkdownV2(translation.Translate("Launch Time:")),
		helpers.EscapeMarkdownV2(launch.CreatedAt),
	))

	return sb.String()
}

// formatPaymentConfirmation renders the thank-you message after an upgrade.
func formatPaymentConfirmation(conf entitlement.Confirmation) string {
	target := translation.Translate("Your account has been upgraded to premium status.")
	if conf.Kind == entitlement.KindGroup {
		target = translation.Translate("This group has been upgraded to premium status.")
	}
	return fmt.Sprintf("✨ %s %s",
		helpers.EscapeMarkdownV2(fmt.Sprintf(
			translation.Translate("Thank you for your payment of %s XRP!"),
			helpers.FormatXRP(conf.Amount, false),
		)),
		helpers.EscapeMarkdownV2(target),
	)
}

// formatPaymentInsufficient renders the informational sub-minimum reply.
func formatPaymentInsufficient(amount float64) string {
	return "❌ " + helpers.EscapeMarkdownV2(fmt.Sprintf(
		translation.Translate("Payment of %s XRP received, but it's insufficient for an upgrade. Please check the required amounts."),
		helpers.FormatXRP(amount, false),
	))
}
