package graph

import (
	"context"
	"fmt"
	"time"
)

// CallRecordsResource is the change-notification resource path for call
// records. Max expiration the provider allows for this resource is ~4230
// minutes (~2.9 days).
const CallRecordsResource = "/communications/callRecords"

// TranscriptsResource is the change-notification resource path for
// transcript availability. Max expiration the provider allows for this
// resource is 4230 minutes; past 60 minutes the subscription additionally
// requires a lifecycleNotificationUrl so expiring/missed notifications can
// be detected and the subscription recreated.
const TranscriptsResource = "/communications/onlineMeetings/getAllTranscripts"

// transcriptLifecycleThreshold is the expiration beyond which Graph
// requires a lifecycleNotificationUrl on the subscription.
const transcriptLifecycleThreshold = 60 * time.Minute

// ListSubscriptions returns every active subscription.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var resp struct {
		Value []Subscription `json:"value"`
	}
	if err := c.get(ctx, "/subscriptions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// CreateSubscription creates a change-notification subscription for the
// given resource, expiring at expiry.
func (c *Client) CreateSubscription(ctx context.Context, resource, notificationURL, clientState string, expiry time.Time) (*Subscription, error) {
	payload := map[string]any{
		"changeType":         "created",
		"notificationUrl":    notificationURL,
		"resource":           resource,
		"expirationDateTime": expiry.UTC().Format(time.RFC3339),
		"clientState":        clientState,
	}
	var sub Subscription
	if err := c.post(ctx, "/subscriptions", payload, &sub); err != nil {
		return nil, fmt.Errorf("creating subscription for %s: %w", resource, err)
	}
	return &sub, nil
}

// CreateTranscriptSubscription creates a getAllTranscripts subscription,
// adding a lifecycleNotificationUrl whenever expiry is more than one hour
// out — Graph requires it past that point so a missed renewal or
// provider-side removal can still be detected.
func (c *Client) CreateTranscriptSubscription(ctx context.Context, notificationURL, lifecycleNotificationURL, clientState string, expiry time.Time) (*Subscription, error) {
	payload := map[string]any{
		"changeType":         "created",
		"notificationUrl":    notificationURL,
		"resource":           TranscriptsResource,
		"expirationDateTime": expiry.UTC().Format(time.RFC3339),
		"clientState":        clientState,
	}
	if time.Until(expiry) > transcriptLifecycleThreshold && lifecycleNotificationURL != "" {
		payload["lifecycleNotificationUrl"] = lifecycleNotificationURL
	}
	var sub Subscription
	if err := c.post(ctx, "/subscriptions", payload, &sub); err != nil {
		return nil, fmt.Errorf("creating transcript subscription: %w", err)
	}
	return &sub, nil
}

// RenewSubscription extends an existing subscription's expiration via
// PATCH.
func (c *Client) RenewSubscription(ctx context.Context, subscriptionID string, newExpiry time.Time) (*Subscription, error) {
	payload := map[string]any{
		"expirationDateTime": newExpiry.UTC().Format(time.RFC3339),
	}
	var sub Subscription
	if err := c.patch(ctx, "/subscriptions/"+subscriptionID, payload, &sub); err != nil {
		return nil, fmt.Errorf("renewing subscription %s: %w", subscriptionID, err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription.
func (c *Client) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	return c.delete(ctx, "/subscriptions/"+subscriptionID)
}
