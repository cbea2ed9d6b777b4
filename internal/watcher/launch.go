package watcher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"innercircle-xrp-bot/internal/feed"
	"innercircle-xrp-bot/internal/store"
)

// pageSize is how many launches one poll fetches. If more than a page of
// launches happen between polls, records below the page are skipped; the
// upstream does not serve unbounded history.
const pageSize = 10

// LaunchFeed fetches the current page of launch records.
type LaunchFeed interface {
	Latest(ctx context.Context, limit int) ([]feed.Launch, error)
}

// Audience yields the recipients currently entitled to alerts.
type Audience interface {
	ActiveRecipients() ([]string, error)
}

// LaunchNotifier delivers one launch alert to one recipient.
type LaunchNotifier interface {
	SendLaunchAlert(recipient string, launch feed.Launch) error
}

// LaunchWatcherOptions wires a LaunchWatcher.
type LaunchWatcherOptions struct {
	Feed     LaunchFeed
	Audience Audience
	Notifier LaunchNotifier
	Store    *store.Store
	// Interval between polls. Defaults to 30s.
	Interval time.Duration
	// AlertsSent is incremented per delivered alert. Optional.
	AlertsSent prometheus.Counter
}

// LaunchWatcher polls the launch feed, fans new records out to the active
// audience and advances the persisted cursor.
type LaunchWatcher struct {
	opts   LaunchWatcherOptions
	cursor int64
}

// NewLaunchWatcher creates a watcher with its cursor loaded from the store.
// A fresh deployment starts at zero and alerts only on launches newer than
// the first page it sees.
func NewLaunchWatcher(opts LaunchWatcherOptions) (*LaunchWatcher, error) {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}

	w := &LaunchWatcher{opts: opts}
	cursor, err := loadCursor(opts.Store)
	if err != nil {
		return nil, err
	}
	w.cursor = cursor
	return w, nil
}

// Run polls until the context is cancelled. Nothing a tick does is fatal.
func (w *LaunchWatcher) Run(ctx context.Context) error {
	log.Info("launch monitoring started")

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		w.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one poll cycle: fetch a page, alert on every record newer than
// the cursor, then persist the highest id seen. A failed or empty fetch
// leaves the cursor untouched.
func (w *LaunchWatcher) Tick(ctx context.Context) {
	launches, err := w.opts.Feed.Latest(ctx, pageSize)
	if err != nil {
		log.Errorf("launch fetch failed, skipping tick: %v", err)
		return
	}
	if len(launches) == 0 {
		return
	}

	newest := w.cursor
	for _, launch := range launches {
		if launch.ID > newest {
			newest = launch.ID
		}
		if launch.ID > w.cursor {
			log.Infof("new launch detected: %s (%d)", launch.Title, launch.ID)
			w.fanOut(launch)
		}
	}

	if newest > w.cursor {
		if err := saveCursor(w.opts.Store, newest); err != nil {
			// Keep the in-memory cursor advanced anyway so this process does
			// not re-alert; the next successful save catches up.
			log.Errorf("could not persist launch cursor: %v", err)
		}
		w.cursor = newest
	}
}

// fanOut delivers one launch to every active recipient. The audience is
// recomputed per record because trial expiry is time-driven. A failed
// delivery never aborts the rest of the batch.
func (w *LaunchWatcher) fanOut(launch feed.Launch) {
	recipients, err := w.opts.Audience.ActiveRecipients()
	if err != nil {
		log.Errorf("could not resolve alert audience: %v", err)
		return
	}

	for _, recipient := range recipients {
		if err := w.opts.Notifier.SendLaunchAlert(recipient, launch); err != nil {
			log.Errorf("could not deliver launch alert to %s: %v", recipient, err)
			continue
		}
		if w.opts.AlertsSent != nil {
			w.opts.AlertsSent.Inc()
		}
	}
}

func loadCursor(s *store.Store) (int64, error) {
	data, err := s.Get(store.LastSeen)
	if err != nil {
		return 0, err
	}
	raw, ok := data["last_id"]
	if !ok {
		return 0, nil
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		log.Errorf("unreadable launch cursor %q, starting from zero", raw)
		return 0, nil
	}
	return id, nil
}

func saveCursor(s *store.Store, id int64) error {
	return s.Update(store.LastSeen, func(data map[string]json.RawMessage) {
		data["last_id"] = json.RawMessage(strconv.FormatInt(id, 10))
	})
}
