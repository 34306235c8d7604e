package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// GetUserCalendarView queries one user's calendar view for online meetings
// within [start, end), the fallback-discovery poller's primary source.
func (c *Client) GetUserCalendarView(ctx context.Context, userID string, start, end time.Time) ([]CalendarEvent, error) {
	query := url.Values{
		"startDateTime": {start.UTC().Format(time.RFC3339)},
		"endDateTime":   {end.UTC().Format(time.RFC3339)},
		"$select":       {"id,subject,start,end,onlineMeeting,organizer,attendees,isOnlineMeeting"},
	}
	raw, err := c.getPaged(ctx, fmt.Sprintf("/users/%s/calendarView", userID), query)
	if err != nil {
		return nil, fmt.Errorf("querying calendar view for %s: %w", userID, err)
	}

	events := make([]CalendarEvent, 0, len(raw))
	for _, r := range raw {
		var ev CalendarEvent
		if err := json.Unmarshal(r, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
