package subscription

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// sendAlert records the down-state transition (first failure only — a
// second, already-down failure doesn't get its own "down" row) and emails
// every configured recipient, with a cooldown on the email itself so a
// persistent outage doesn't spam the inbox once per check cycle.
func (m *Manager) sendAlert(ctx context.Context, subject, body, source string) {
	m.recordDownIfNeeded(ctx, source, subject)

	if !m.cfg.AlertEnabled || len(m.cfg.AlertRecipients) == 0 || m.cfg.AlertFromUserID == "" {
		return
	}

	m.mu.Lock()
	sinceLast := time.Since(m.lastAlertTime)
	if !m.lastAlertTime.IsZero() && sinceLast < m.cfg.AlertCooldown {
		m.mu.Unlock()
		slog.Info("subscription: alert suppressed by cooldown", "subject", subject, "since_last", sinceLast)
		return
	}
	m.lastAlertTime = time.Now().UTC()
	m.mu.Unlock()

	htmlBody := fmt.Sprintf(`<h2>Webhook Subscription Alert</h2><p><strong>Issue:</strong> %s</p><div>%s</div><p style="color:#666;font-size:12px;">Webhook URL: %s</p>`,
		html.EscapeString(subject), body, html.EscapeString(m.cfg.WebhookURL))

	mail := graph.OutgoingMail{
		ToEmails: m.cfg.AlertRecipients,
		Subject:  "[Webhook Alert] " + subject,
		BodyHTML: htmlBody,
	}
	if err := m.graph.SendMail(ctx, m.cfg.AlertFromUserID, mail); err != nil {
		slog.Error("subscription: sending alert email failed", "error", err)
		return
	}
	slog.Info("subscription: alert email sent", "subject", subject, "recipients", len(m.cfg.AlertRecipients))
}

// recordDownIfNeeded logs a new "down" event only when no unpaired one
// already exists, so a run of consecutive failures produces exactly one
// down event to pair with the eventual recovery.
func (m *Manager) recordDownIfNeeded(ctx context.Context, source, errMsg string) {
	existing, err := m.events.LastUnpairedDown(ctx)
	if err != nil {
		slog.Warn("subscription: checking existing down state failed", "error", err)
		return
	}
	if existing != nil {
		return
	}
	m.logEvent(ctx, store.SubscriptionEventDown, source, nil, errMsg)
}

// sendRecoveryAlert emails every configured recipient once the
// subscription has recovered from a down state.
func (m *Manager) sendRecoveryAlert(ctx context.Context, downAt, upAt time.Time, downtimeSeconds int) {
	if !m.cfg.AlertEnabled || len(m.cfg.AlertRecipients) == 0 || m.cfg.AlertFromUserID == "" {
		return
	}

	htmlBody := fmt.Sprintf(
		`<h2>Webhook Subscription Recovered</h2><p>The Graph webhook subscription has been restored.</p>
		<p><strong>Disconnected:</strong> %s UTC<br/><strong>Reconnected:</strong> %s UTC<br/><strong>Total downtime:</strong> %s</p>
		<p style="color:#666;font-size:12px;">Webhook URL: %s</p>`,
		downAt.Format("2006-01-02 15:04:05"), upAt.Format("2006-01-02 15:04:05"),
		formatDowntime(downtimeSeconds), html.EscapeString(m.cfg.WebhookURL))

	mail := graph.OutgoingMail{
		ToEmails: m.cfg.AlertRecipients,
		Subject:  "[Webhook Alert] Subscription Recovered",
		BodyHTML: htmlBody,
	}
	if err := m.graph.SendMail(ctx, m.cfg.AlertFromUserID, mail); err != nil {
		slog.Error("subscription: sending recovery email failed", "error", err)
		return
	}
	slog.Info("subscription: recovery email sent", "downtime_seconds", downtimeSeconds)
}

func formatDowntime(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}
