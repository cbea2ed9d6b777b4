package entitlement

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"innercircle-xrp-bot/internal/store"
)

// Tier is a recipient's alert-eligibility level.
type Tier string

const (
	TierNone    Tier = "none"
	TierTrial   Tier = "trial"
	TierPremium Tier = "premium"
)

// Kind is the chat type a recipient maps to.
type Kind string

const (
	KindGroup   Kind = "group"
	KindPrivate Kind = "private"
	KindUnknown Kind = ""
)

// TrialDuration is how long a trial entitlement lasts.
const TrialDuration = 24 * time.Hour

var (
	// ErrAlreadyPremium is returned when a trial is requested by a recipient
	// that already holds premium.
	ErrAlreadyPremium = errors.New("recipient already has premium")

	// ErrTrialAlreadyUsed is returned when a recipient requests a second
	// trial, even if the first one has expired.
	ErrTrialAlreadyUsed = errors.New("trial already used")
)

// Record is the canonical persisted entitlement shape. All read and write
// paths go through it; legacy field names are normalized on read.
type Record struct {
	Tier        Tier       `json:"tier"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ActivatedAt time.Time  `json:"activated_at"`
	Kind        Kind       `json:"kind,omitempty"`
}

// Status is the expiry-evaluated view of a record.
type Status struct {
	Tier      Tier
	ExpiresAt *time.Time
}

// Confirmation is the payload handed to the notifier after a grant.
type Confirmation struct {
	Recipient string
	Amount    float64
	Kind      Kind
}

// Service drives per-recipient entitlement state. All state lives in the
// store; there are no in-memory membership sets to drift out of sync.
type Service struct {
	store *store.Store
	now   func() time.Time
}

func NewService(s *store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// ActivateTrial creates a 24h trial record for the recipient. A recipient
// gets one trial ever: an expired trial record still blocks a new one.
func (s *Service) ActivateTrial(recipient string) (Record, error) {
	if st, err := s.Status(recipient); err != nil {
		return Record{}, err
	} else if st.Tier == TierPremium {
		return Record{}, ErrAlreadyPremium
	}

	trials, err := s.store.Get(store.Trials)
	if err != nil {
		return Record{}, err
	}
	if _, used := trials[recipient]; used {
		return Record{}, ErrTrialAlreadyUsed
	}

	now := s.now().UTC()
	expires := now.Add(TrialDuration)
	rec := Record{Tier: TierTrial, ExpiresAt: &expires, ActivatedAt: now}

	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "could not encode trial record")
	}
	trials[recipient] = raw
	if err := s.store.Set(store.Trials, trials); err != nil {
		return Record{}, err
	}

	log.Infof("trial activated for %s, expires %s", recipient, expires.Format(time.RFC3339))
	return rec, nil
}

// GrantPremium upgrades the recipient to premium with no expiry. The caller
// deduplicates payments by tx hash; calling this twice leaves the recipient
// premium but produces a second confirmation.
func (s *Service) GrantPremium(recipient string, amount float64, kind Kind) (Confirmation, error) {
	rec := Record{Tier: TierPremium, ActivatedAt: s.now().UTC(), Kind: kind}

	raw, err := json.Marshal(rec)
	if err != nil {
		return Confirmation{}, errors.Wrap(err, "could not encode premium record")
	}
	err = s.store.Update(store.Users, func(users map[string]json.RawMessage) {
		users[recipient] = raw
	})
	if err != nil {
		return Confirmation{}, err
	}

	log.Infof("premium granted to %s (%s) for %.2f XRP", recipient, kind, amount)
	return Confirmation{Recipient: recipient, Amount: amount, Kind: kind}, nil
}

// Revoke removes the recipient's premium record. Used by /stop.
func (s *Service) Revoke(recipient string) error {
	return s.store.Update(store.Users, func(users map[string]json.RawMessage) {
		delete(users, recipient)
	})
}

// Status returns the current expiry-evaluated tier for a recipient. Premium
// without an expiry is always active; anything with an expiry is compared
// against the clock. Pure read.
func (s *Service) Status(recipient string) (Status, error) {
	now := s.now()

	users, err := s.store.Get(store.Users)
	if err != nil {
		return Status{}, err
	}
	if raw, ok := users[recipient]; ok {
		rec := normalize(raw, TierPremium)
		if active(rec, now) {
			return Status{Tier: TierPremium, ExpiresAt: rec.ExpiresAt}, nil
		}
	}

	trials, err := s.store.Get(store.Trials)
	if err != nil {
		return Status{}, err
	}
	if raw, ok := trials[recipient]; ok {
		rec := normalize(raw, TierTrial)
		if active(rec, now) {
			return Status{Tier: TierTrial, ExpiresAt: rec.ExpiresAt}, nil
		}
	}

	return Status{Tier: TierNone}, nil
}

// ActiveRecipients returns every recipient whose tier is currently premium or
// an unexpired trial. Recomputed from the store on every call because trial
// expiry is time-driven.
func (s *Service) ActiveRecipients() ([]string, error) {
	now := s.now()
	seen := make(map[string]struct{})
	var out []string

	users, err := s.store.Get(store.Users)
	if err != nil {
		return nil, err
	}
	for id, raw := range users {
		if active(normalize(raw, TierPremium), now) {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	trials, err := s.store.Get(store.Trials)
	if err != nil {
		return nil, err
	}
	for id, raw := range trials {
		if _, dup := seen[id]; dup {
			continue
		}
		if active(normalize(raw, TierTrial), now) {
			out = append(out, id)
		}
	}

	return out, nil
}

// KindOf reports the chat kind recorded for a recipient, KindUnknown when
// nothing is on file.
func (s *Service) KindOf(recipient string) Kind {
	users, err := s.store.Get(store.Users)
	if err == nil {
		if raw, ok := users[recipient]; ok {
			if k := normalize(raw, TierPremium).Kind; k != KindUnknown {
				return k
			}
		}
	}
	groups, err := s.store.Get(store.Groups)
	if err == nil {
		if _, ok := groups[recipient]; ok {
			return KindGroup
		}
	}
	return KindUnknown
}

// SetKeywords replaces the tracked-keyword list for a recipient.
func (s *Service) SetKeywords(recipient string, words json.RawMessage) error {
	return s.store.Update(store.Keywords, func(kw map[string]json.RawMessage) {
		kw[recipient] = words
	})
}

// RegisterGroup records a chat as a group so later payments tagged to it are
// validated against the group threshold.
func (s *Service) RegisterGroup(recipient, title string) error {
	entry, err := json.Marshal(map[string]string{
		"name":      title,
		"joined_at": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "could not encode group entry")
	}
	return s.store.Update(store.Groups, func(groups map[string]json.RawMessage) {
		groups[recipient] = entry
	})
}

func active(rec Record, now time.Time) bool {
	if rec.ExpiresAt == nil {
		return rec.Tier != TierNone
	}
	return rec.ExpiresAt.After(now)
}

// rawRecord accepts both the canonical shape and the field names older
// deployments wrote ("expires"/"started" as RFC3339 strings).
type rawRecord struct {
	Tier        Tier       `json:"tier"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ActivatedAt *time.Time `json:"activated_at"`
	Kind        Kind       `json:"kind"`
	Expires     string     `json:"expires"`
	Started     string     `json:"started"`
}

// normalize decodes a persisted record, filling canonical fields from legacy
// ones. Undecodable records collapse to a bare record of the fallback tier,
// which for premium means permanently active rather than silently dropped.
func normalize(raw json.RawMessage, fallback Tier) Record {
	var r rawRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		log.Debugf("unreadable entitlement record, assuming %s: %v", fallback, err)
		return Record{Tier: fallback}
	}

	rec := Record{Tier: r.Tier, ExpiresAt: r.ExpiresAt, Kind: r.Kind}
	if rec.Tier == "" {
		rec.Tier = fallback
	}
	if r.ActivatedAt != nil {
		rec.ActivatedAt = *r.ActivatedAt
	}
	if rec.ExpiresAt == nil && r.Expires != "" && r.Expires != "Never" {
		if t, err := time.Parse(time.RFC3339, r.Expires); err == nil {
			rec.ExpiresAt = &t
		}
	}
	if rec.ActivatedAt.IsZero() && r.Started != "" {
		if t, err := time.Parse(time.RFC3339, r.Started); err == nil {
			rec.ActivatedAt = t
		}
	}
	return rec
}
