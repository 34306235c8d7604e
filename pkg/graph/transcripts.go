package graph

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetAllTranscriptsForOrganizer lists every transcript Graph knows about for
// meetings this organizer ran. This is the beta getAllTranscripts API,
// which works even when the caller isn't the meeting organizer — the
// preferred signal because it fires exactly when a transcript becomes
// available.
func (c *Client) GetAllTranscriptsForOrganizer(ctx context.Context, organizerUserID string) ([]TranscriptMeta, error) {
	endpoint := fmt.Sprintf("/users/%s/onlineMeetings/getAllTranscripts(meetingOrganizerUserId='%s')", organizerUserID, organizerUserID)
	var resp struct {
		Value []TranscriptMeta `json:"value"`
	}
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing transcripts for organizer %s: %w", organizerUserID, err)
	}
	return resp.Value, nil
}

// DownloadTranscriptContent fetches the raw WebVTT content of one
// transcript.
func (c *Client) DownloadTranscriptContent(ctx context.Context, organizerUserID, meetingID, transcriptID string) (string, error) {
	endpoint := fmt.Sprintf("/users/%s/onlineMeetings/%s/transcripts/%s/content", organizerUserID, meetingID, transcriptID)
	body, err := c.getRaw(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("downloading transcript %s: %w", transcriptID, err)
	}
	return string(body), nil
}

// parseTranscriptMeta decodes one getAllTranscripts entry. Nothing in the
// module calls it, and no test covers it.
func parseTranscriptMeta(raw []byte) (TranscriptMeta, error) {
	var t TranscriptMeta
	err := json.Unmarshal(raw, &t)
	return t, err
}
