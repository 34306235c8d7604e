package ingest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// extractParticipants walks every session's caller/callee identity and
// classifies it into one of four shapes Graph returns for a call
// participant, deduplicating by user/guest/ACS id or phone id. Call record
// sessions never include an internal user's email — only Graph's user
// lookup does — so each new internal id costs one directory round trip.
func (h *Handler) extractParticipants(ctx context.Context, record *graph.CallRecord) []Participant {
	var out []Participant
	seen := make(map[string]struct{})

	for _, session := range record.Sessions {
		for _, ep := range [2]*graph.Endpoint{session.Caller, session.Callee} {
			if ep == nil || ep.Identity == nil {
				continue
			}
			id := ep.Identity

			if u := id.User; u != nil && u.ID != "" {
				if _, ok := seen[u.ID]; ok {
					continue
				}
				seen[u.ID] = struct{}{}

				email := h.resolveUserEmail(ctx, u.ID)
				if email == "" {
					continue
				}
				out = append(out, Participant{
					Email:  strings.ToLower(email),
					Name:   u.DisplayName,
					Role:   store.RoleAttendee,
					Type:   store.ParticipantInternal,
					UserID: u.ID,
				})
				continue
			}

			if p := id.Phone; p != nil {
				unique := p.ID
				if unique == "" {
					unique = p.DisplayName
				}
				if unique == "" {
					continue
				}
				if _, ok := seen[unique]; ok {
					continue
				}
				seen[unique] = struct{}{}

				name := p.DisplayName
				if name == "" {
					name = "Phone Participant"
				}
				out = append(out, Participant{
					Name:  name,
					Phone: p.ID,
					Role:  store.RoleAttendee,
					Type:  store.ParticipantPSTN,
				})
				continue
			}

			if g := id.Guest; g != nil {
				if g.ID == "" {
					continue
				}
				if _, ok := seen[g.ID]; ok {
					continue
				}
				seen[g.ID] = struct{}{}

				name := g.DisplayName
				if name == "" {
					name = "Guest"
				}
				out = append(out, Participant{
					Email: strings.ToLower(g.Email),
					Name:  name,
					Role:  store.RoleAttendee,
					Type:  store.ParticipantGuest,
				})
				continue
			}

			if a := id.ACSUser; a != nil {
				if a.ID == "" {
					continue
				}
				if _, ok := seen[a.ID]; ok {
					continue
				}
				seen[a.ID] = struct{}{}

				name := a.DisplayName
				if name == "" {
					name = "External Participant"
				}
				out = append(out, Participant{
					Name: name,
					Role: store.RoleAttendee,
					Type: store.ParticipantExternal,
				})
			}
		}
	}

	return out
}

// resolveUserEmail looks up an internal user's mail/UPN via the directory.
// Returns "" (rather than an error) on lookup failure — a participant we
// can't identify is dropped, not fatal to the rest of the call record.
func (h *Handler) resolveUserEmail(ctx context.Context, userID string) string {
	user, err := h.graph.GetUser(ctx, userID)
	if err != nil {
		slog.Warn("looking up call participant failed", "user_id", userID, "error", err)
		return ""
	}
	if user.UserPrincipalName != "" {
		return user.UserPrincipalName
	}
	return user.Mail
}

// formatDisplayName applies the PSTN-phone-suffix and external-marker
// conventions to a participant's name before it's written as a
// MeetingParticipant row.
func formatDisplayName(p Participant) string {
	name := p.Name
	if name == "" {
		name = "Unknown"
	}
	switch p.Type {
	case store.ParticipantPSTN:
		if p.Phone == "" {
			return name
		}
		if name != "" && name != "Phone Participant" {
			return name + " (" + p.Phone + ")"
		}
		return p.Phone
	case store.ParticipantGuest, store.ParticipantExternal:
		if !strings.HasSuffix(name, "(External)") {
			return name + " (External)"
		}
		return name
	default:
		return name
	}
}

// emails returns the non-empty email addresses out of a participant list,
// the input to an opt-in check.
func emails(participants []Participant) []string {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.Email != "" {
			out = append(out, p.Email)
		}
	}
	return out
}
