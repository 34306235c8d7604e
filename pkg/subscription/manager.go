// Package subscription keeps the callRecords change-notification
// subscription alive: created on startup, renewed before it expires,
// proactively recreated once a day, and re-created from scratch when
// renewal fails — alerting by email when the gap persists.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"

	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// callRecordsMaxExpiration is the longest expiration Graph accepts for a
// callRecords subscription (~4230 minutes); 4200 leaves a small buffer.
const callRecordsMaxExpiration = 4200 * time.Minute

// startupEnsureDelay gives the relay listener time to finish connecting
// before the first subscription ensure runs, so a callRecords
// notification doesn't arrive before anything is listening for it.
const startupEnsureDelay = 5 * time.Second

// Config holds the manager's schedule and alerting thresholds.
type Config struct {
	WebhookURL  string
	ClientState string

	CheckInterval      time.Duration // default 5m
	RenewThreshold     time.Duration // renew when less than this remains; default 12h
	DailyRecreateHour  int           // UTC hour to proactively recreate; default 3
	MaxCreationRetries uint64        // default 5
	RetryDelay         time.Duration // default 30s

	AlertEnabled     bool
	AlertRecipients  []string
	AlertFromUserID  string
	AlertCooldown    time.Duration // default 6h
}

func (c Config) withDefaults() Config {
	if c.CheckInterval == 0 {
		c.CheckInterval = 5 * time.Minute
	}
	if c.RenewThreshold == 0 {
		c.RenewThreshold = 12 * time.Hour
	}
	if c.DailyRecreateHour == 0 {
		c.DailyRecreateHour = 3
	}
	if c.MaxCreationRetries == 0 {
		c.MaxCreationRetries = 5
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.AlertCooldown == 0 {
		c.AlertCooldown = 6 * time.Hour
	}
	return c
}

// Manager owns the lifecycle of the callRecords subscription.
type Manager struct {
	cfg    Config
	graph  *graph.Client
	events *store.SubscriptionEventStore

	cron   *cron.Cron
	cancel context.CancelFunc
	done   chan struct{}

	mu            sync.Mutex
	lastAlertTime time.Time
}

// NewManager builds a Manager. Down/up state is derived entirely from
// SubscriptionEventStore.LastUnpairedDown rather than a local state
// file — the original persisted an on-disk marker across restarts for
// exactly this purpose, which a database row already gives for free.
func NewManager(cfg Config, g *graph.Client, events *store.SubscriptionEventStore) *Manager {
	return &Manager{cfg: cfg.withDefaults(), graph: g, events: events}
}

// Start waits briefly for the relay listener to finish connecting, ensures
// a subscription exists, then launches both the periodic check loop and
// the daily proactive-recreate cron schedule.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	select {
	case <-time.After(startupEnsureDelay):
	case <-runCtx.Done():
		close(m.done)
		return
	}

	if !m.ensureWithRetry(runCtx, "startup", true) {
		slog.Error("subscription: failed to create webhook subscription after retries; notifications may not work")
		m.sendAlert(runCtx, "Webhook Subscription Failed",
			fmt.Sprintf("Failed to create the Graph webhook subscription after %d attempts. Real-time notifications are not working; backfill polling is the only coverage until this recovers.", m.cfg.MaxCreationRetries),
			"startup")
	}

	m.cron = cron.New(cron.WithLocation(time.UTC))
	_, err := m.cron.AddFunc(fmt.Sprintf("0 %d * * *", m.cfg.DailyRecreateHour), func() {
		m.dailyRecreate(runCtx)
	})
	if err != nil {
		slog.Error("subscription: scheduling daily recreate failed", "error", err)
	}
	m.cron.Start()

	go m.run(runCtx)
}

// Stop cancels the check loop and the cron schedule, waiting for the
// in-flight cycle to finish.
func (m *Manager) Stop() {
	if m.cron != nil {
		stopCtx := m.cron.Stop()
		<-stopCtx.Done()
	}
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.Ensure(ctx, "check") {
				if !m.ensureWithRetry(ctx, "check", false) {
					m.sendAlert(ctx, "Webhook Subscription Check Failed",
						fmt.Sprintf("Periodic check found no valid subscription, and recreation failed after %d attempts. Real-time notifications are not working.", m.cfg.MaxCreationRetries),
						"check")
				}
			}
		}
	}
}

func (m *Manager) dailyRecreate(ctx context.Context) {
	slog.Info("subscription: daily proactive recreation")
	if !m.Recreate(ctx, "daily_refresh") {
		m.sendAlert(ctx, "Daily Webhook Subscription Refresh Failed",
			"The daily webhook subscription refresh failed. Notifications may not work correctly until the next scheduled check.",
			"daily_refresh")
	}
}

// callRecordsSubscriptions returns every subscription that is a
// callRecords subscription pointed at our webhook URL.
func (m *Manager) callRecordsSubscriptions(ctx context.Context) ([]graph.Subscription, error) {
	all, err := m.graph.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Subscription, 0, len(all))
	for _, s := range all {
		if s.Resource == graph.CallRecordsResource && s.NotificationURL == m.cfg.WebhookURL {
			out = append(out, s)
		}
	}
	return out, nil
}

// Create creates a new callRecords subscription.
func (m *Manager) Create(ctx context.Context, source string) (*graph.Subscription, bool) {
	expiry := time.Now().UTC().Add(callRecordsMaxExpiration)
	sub, err := m.graph.CreateSubscription(ctx, graph.CallRecordsResource, m.cfg.WebhookURL, m.cfg.ClientState, expiry)
	if err != nil {
		slog.Error("subscription: creation failed", "source", source, "error", err)
		m.logEvent(ctx, store.SubscriptionEventFailed, source, nil, errStr(err))
		return nil, false
	}
	slog.Info("subscription: created", "id", sub.ID, "expires", sub.ExpirationDateTime)
	m.logEvent(ctx, store.SubscriptionEventCreated, source, &sub.ID, "")
	m.checkRecoveryAlert(ctx, source, sub.ID)
	return sub, true
}

// Renew extends an existing subscription's expiration.
func (m *Manager) Renew(ctx context.Context, subscriptionID, source string) bool {
	expiry := time.Now().UTC().Add(callRecordsMaxExpiration)
	sub, err := m.graph.RenewSubscription(ctx, subscriptionID, expiry)
	if err != nil {
		slog.Error("subscription: renewal failed", "id", subscriptionID, "source", source, "error", err)
		m.logEvent(ctx, store.SubscriptionEventFailed, source, &subscriptionID, errStr(err))
		return false
	}
	slog.Info("subscription: renewed", "id", subscriptionID, "expires", sub.ExpirationDateTime)
	m.logEvent(ctx, store.SubscriptionEventRenewed, source, &subscriptionID, "")
	m.checkRecoveryAlert(ctx, source, subscriptionID)
	return true
}

// Delete removes a subscription.
func (m *Manager) Delete(ctx context.Context, subscriptionID string) bool {
	if err := m.graph.DeleteSubscription(ctx, subscriptionID); err != nil {
		slog.Error("subscription: deletion failed", "id", subscriptionID, "error", err)
		return false
	}
	slog.Info("subscription: deleted", "id", subscriptionID)
	return true
}

// Ensure makes sure at least one valid (not about to expire)
// subscription exists, renewing or recreating as needed.
func (m *Manager) Ensure(ctx context.Context, source string) bool {
	subs, err := m.callRecordsSubscriptions(ctx)
	if err != nil {
		slog.Error("subscription: listing failed", "error", err)
		return false
	}
	if len(subs) == 0 {
		_, ok := m.Create(ctx, source)
		return ok
	}

	now := time.Now().UTC()
	threshold := now.Add(m.cfg.RenewThreshold)

	for _, sub := range subs {
		if sub.ExpirationDateTime.After(threshold) {
			m.checkRecoveryAlert(ctx, source, sub.ID)
			return true
		}

		if m.Renew(ctx, sub.ID, source) {
			return true
		}
		m.Delete(ctx, sub.ID)
		_, ok := m.Create(ctx, source)
		return ok
	}
	return false
}

// Recreate deletes every existing callRecords subscription and creates a
// fresh one — used for the daily proactive refresh.
func (m *Manager) Recreate(ctx context.Context, source string) bool {
	subs, err := m.callRecordsSubscriptions(ctx)
	if err != nil {
		slog.Error("subscription: listing failed before recreate", "error", err)
	}
	for _, sub := range subs {
		m.Delete(ctx, sub.ID)
	}
	_, ok := m.Create(ctx, source)
	return ok
}

// ensureWithRetry retries Ensure with a fixed delay between attempts,
// handling the startup race where the relay listener may not yet be
// connected when the first subscription attempt runs.
func (m *Manager) ensureWithRetry(ctx context.Context, source string, sendRecoveryOnSuccess bool) bool {
	hadFailure := false
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(m.cfg.RetryDelay), m.cfg.MaxCreationRetries-1)

	err := backoff.Retry(func() error {
		if m.Ensure(ctx, source) {
			return nil
		}
		hadFailure = true
		return fmt.Errorf("subscription not ensured")
	}, backoff.WithContext(b, ctx))

	if err != nil {
		return false
	}
	if sendRecoveryOnSuccess && hadFailure {
		m.checkRecoveryAlert(ctx, source, "")
	}
	return true
}

func (m *Manager) logEvent(ctx context.Context, eventType, source string, subscriptionID *string, errMsg string) {
	event := &store.SubscriptionEvent{EventType: eventType, Source: source, SubscriptionID: subscriptionID}
	if errMsg != "" {
		event.ErrorMessage = &errMsg
	}
	if _, err := m.events.Record(ctx, event); err != nil {
		slog.Warn("subscription: recording event failed", "event_type", eventType, "error", err)
	}
}

// checkRecoveryAlert looks for an unpaired "down" event and, if found,
// logs the matching "up" event with computed downtime and emails a
// recovery notice.
func (m *Manager) checkRecoveryAlert(ctx context.Context, source, subscriptionID string) {
	down, err := m.events.LastUnpairedDown(ctx)
	if err != nil {
		slog.Warn("subscription: checking down state failed", "error", err)
		return
	}
	if down == nil {
		return
	}

	now := time.Now().UTC()
	downtimeSeconds := int(now.Sub(down.OccurredAt).Seconds())

	event := &store.SubscriptionEvent{
		EventType:       store.SubscriptionEventUp,
		Source:          source,
		DownEventID:     &down.ID,
		DowntimeSeconds: &downtimeSeconds,
	}
	if subscriptionID != "" {
		event.SubscriptionID = &subscriptionID
	}
	if _, err := m.events.Record(ctx, event); err != nil {
		slog.Warn("subscription: recording recovery event failed", "error", err)
	}

	m.sendRecoveryAlert(ctx, down.OccurredAt, now, downtimeSeconds)
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
