package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/xrpl"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token            string
	Debug            bool
	UpdatesTimeout   int
	Wallet           string
	MinAmountGroup   float64
	MinAmountPrivate float64
}

// Deps are the collaborators the command surface drives.
type Deps struct {
	Entitlements *entitlement.Service
	Launches     LaunchSource
	Tokens       TokenSource
	Ledger       LedgerSource
	Payments     *xrpl.Monitor
}

// Bot telegram interaction client
type Bot struct {
	Bot    *tgbotapi.BotAPI
	Config BotConfig
	Deps   Deps
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
