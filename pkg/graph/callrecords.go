package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// GetCallRecord fetches a single call record with its sessions expanded,
// the shape the notification handler needs to enumerate participants.
func (c *Client) GetCallRecord(ctx context.Context, callRecordID string) (*CallRecord, error) {
	var record CallRecord
	if err := c.get(ctx, "/communications/callRecords/"+callRecordID, url.Values{"$expand": {"sessions"}}, &record); err != nil {
		return nil, fmt.Errorf("fetching call record %s: %w", callRecordID, err)
	}
	return &record, nil
}

// ListCallRecordsSince pages through /communications/callRecords filtering
// on startDateTime, following @odata.nextLink until exhausted.
func (c *Client) ListCallRecordsSince(ctx context.Context, cutoff time.Time) ([]CallRecord, error) {
	query := url.Values{
		"$filter": {fmt.Sprintf("startDateTime ge %s", cutoff.UTC().Format(time.RFC3339))},
	}
	raw, err := c.getPaged(ctx, "/communications/callRecords", query)
	if err != nil {
		return nil, fmt.Errorf("listing call records since %s: %w", cutoff, err)
	}
	records := make([]CallRecord, 0, len(raw))
	for _, r := range raw {
		var rec CallRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
