package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innercircle-xrp-bot/internal/entitlement"
	"innercircle-xrp-bot/internal/store"
)

// newCommandBot builds a bot with real entitlement state and no API client;
// the command handlers under test only render text.
func newCommandBot(t *testing.T) (*Bot, *entitlement.Service) {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	svc := entitlement.NewService(s)

	b := &Bot{
		Config: BotConfig{
			Wallet:           "raymA4FrBEdLjJyWHX2icyFqwSbKquSTQd",
			MinAmountGroup:   20,
			MinAmountPrivate: 10,
		},
		Deps: Deps{Entitlements: svc},
	}
	return b, svc
}

func TestCommandTrial(t *testing.T) {
	b, _ := newCommandBot(t)

	first := b.commandTrial("100")
	assert.Contains(t, first, "Trial activated")

	second := b.commandTrial("100")
	assert.Contains(t, second, "already used your trial")
}

func TestCommandTrial_AlreadyPremium(t *testing.T) {
	b, svc := newCommandBot(t)
	_, err := svc.GrantPremium("200", 25, entitlement.KindPrivate)
	require.NoError(t, err)

	assert.Contains(t, b.commandTrial("200"), "premium subscription")
}

func TestCommandSubscription(t *testing.T) {
	b, svc := newCommandBot(t)

	assert.Contains(t, b.commandSubscription("300"), "No active subscription")

	_, err := svc.ActivateTrial("300")
	require.NoError(t, err)
	assert.Contains(t, b.commandSubscription("300"), "Trial Active")

	_, err = svc.GrantPremium("300", 25, entitlement.KindPrivate)
	require.NoError(t, err)
	withPremium := b.commandSubscription("300")
	assert.Contains(t, withPremium, "Premium Active")
	assert.Contains(t, withPremium, "Never")
}

func TestCommandUpgrade_PricedByChatKind(t *testing.T) {
	b, _ := newCommandBot(t)

	group := b.commandUpgrade("400", true)
	assert.Contains(t, group, "20")
	assert.Contains(t, group, "group")
	assert.Contains(t, group, "400", "destination tag is the chat id")

	private := b.commandUpgrade("500", false)
	assert.Contains(t, private, "10")
	assert.Contains(t, private, "private chat")
}

func TestCommandUpgrade_AlreadyPremium(t *testing.T) {
	b, svc := newCommandBot(t)
	_, err := svc.GrantPremium("600", 25, entitlement.KindGroup)
	require.NoError(t, err)

	assert.Contains(t, b.commandUpgrade("600", true), "already have premium")
}

func TestMenuListsEveryCommand(t *testing.T) {
	menu := menuText()
	for _, cmd := range []string{
		"/menu", "/start", "/stop", "/upgrade", "/trial", "/check",
		"/verify", "/filter", "/setkeywords", "/subscription", "/help",
	} {
		assert.Contains(t, menu, "`"+cmd+"`")
	}
}

func TestCommandStop_RevokesPremium(t *testing.T) {
	b, svc := newCommandBot(t)
	_, err := svc.GrantPremium("700", 25, entitlement.KindPrivate)
	require.NoError(t, err)

	out := b.commandStop("700")
	assert.Contains(t, out, "stopped receiving alerts")

	st, err := svc.Status("700")
	require.NoError(t, err)
	assert.Equal(t, entitlement.TierNone, st.Tier)
}
