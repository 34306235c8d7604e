package graph

import (
	"context"
	"fmt"
)

// PostChatMessage posts content to an existing Teams chat thread (typically
// the meeting's own chat, from onlineMeeting.chatInfo.threadId) and returns
// the new message's id.
func (c *Client) PostChatMessage(ctx context.Context, chatID, content string) (string, error) {
	payload := map[string]any{
		"body": map[string]any{
			"contentType": "html",
			"content":     content,
		},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/chats/"+chatID+"/messages", payload, &resp); err != nil {
		return "", fmt.Errorf("posting to chat %s: %w", chatID, err)
	}
	return resp.ID, nil
}
