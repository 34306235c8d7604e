package graph

import (
	"context"
	"fmt"
)

// GetUser looks up a user by GUID or email/UPN, resolving organizer
// fields and email aliases the notification handler can't get from the
// webhook payload alone.
func (c *Client) GetUser(ctx context.Context, idOrEmail string) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/"+idOrEmail, nil, &user); err != nil {
		return nil, fmt.Errorf("looking up user %s: %w", idOrEmail, err)
	}
	return &user, nil
}

// GetUserPhoto fetches a user's profile photo bytes. Any non-2xx response
// is returned as an error, including the 404 Graph sends for a user with
// no photo set; absence is not distinguished from other failures.
func (c *Client) GetUserPhoto(ctx context.Context, userID string) ([]byte, error) {
	body, err := c.getRaw(ctx, "/users/"+userID+"/photo/$value")
	if err != nil {
		return nil, fmt.Errorf("fetching photo for user %s: %w", userID, err)
	}
	return body, nil
}
