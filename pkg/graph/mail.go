package graph

import (
	"context"
	"fmt"
)

// SendMail sends a message on behalf of fromUserID (typically a shared
// mailbox) via the sendMail action.
func (c *Client) SendMail(ctx context.Context, fromUserID string, mail OutgoingMail) error {
	importance := mail.Importance
	if importance == "" {
		importance = "normal"
	}

	message := map[string]any{
		"subject": mail.Subject,
		"body": map[string]any{
			"contentType": "HTML",
			"content":     mail.BodyHTML,
		},
		"toRecipients": toRecipientList(mail.ToEmails),
		"importance":   importance,
	}
	if len(mail.CCEmails) > 0 {
		message["ccRecipients"] = toRecipientList(mail.CCEmails)
	}

	payload := map[string]any{
		"message":         message,
		"saveToSentItems": false,
	}

	if err := c.post(ctx, "/users/"+fromUserID+"/sendMail", payload, nil); err != nil {
		return fmt.Errorf("sending mail from %s: %w", fromUserID, err)
	}
	return nil
}

func toRecipientList(emails []string) []recipient {
	out := make([]recipient, len(emails))
	for i, addr := range emails {
		out[i].EmailAddress.Address = addr
	}
	return out
}
