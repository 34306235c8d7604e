package preferences

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// UserLookup is the subset of pkg/graph's Client that alias resolution
// needs. Defined locally to avoid a direct pkg/graph dependency — any
// directory lookup satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, idOrEmail string) (*LookupResult, error)
}

// LookupResult is the directory fields alias resolution consumes.
type LookupResult struct {
	ID                string
	Mail              string
	UserPrincipalName string
	DisplayName       string
	JobTitle          string
}

// AliasAgeLimit caches a resolved alias for 7 days before re-querying the
// directory.
const AliasAgeLimit = 7

// AliasResolver maps an email alias (e.g. a nickname a user sends mail
// from) to the primary address that appears in meeting participant lists,
// caching the mapping in the database for AliasAgeLimit days.
type AliasResolver struct {
	store *store.PreferenceStore
	users UserLookup
}

// NewAliasResolver builds an AliasResolver.
func NewAliasResolver(s *store.PreferenceStore, users UserLookup) *AliasResolver {
	return &AliasResolver{store: s, users: users}
}

// ResolvePrimaryEmail returns the primary address for aliasEmail, consulting
// the 7-day cache before falling back to a directory lookup. On directory
// failure the alias itself is returned (and cached) so preference matching
// still has something to compare against.
func (r *AliasResolver) ResolvePrimaryEmail(ctx context.Context, aliasEmail string) string {
	alias := strings.ToLower(strings.TrimSpace(aliasEmail))
	if alias == "" {
		return alias
	}

	cached, err := r.store.ResolveAlias(ctx, alias)
	if err != nil {
		slog.Warn("alias cache lookup failed", "alias", alias, "error", err)
	}
	if cached != nil {
		return cached.PrimaryEmail
	}

	user, err := r.users.GetUser(ctx, alias)
	if err != nil {
		slog.Warn("directory lookup for alias failed, caching alias as its own primary", "alias", alias, "error", err)
		r.cache(ctx, alias, alias, "", "")
		return alias
	}

	primary := strings.ToLower(strings.TrimSpace(user.Mail))
	if primary == "" {
		primary = strings.ToLower(strings.TrimSpace(user.UserPrincipalName))
	}
	if primary == "" {
		primary = alias
	}

	r.cache(ctx, alias, primary, user.ID, user.JobTitle)
	if primary != alias {
		// Also cache primary -> primary so a later lookup by the canonical
		// address is a cache hit too.
		r.cache(ctx, primary, primary, user.ID, user.JobTitle)
	}

	return primary
}

func (r *AliasResolver) cache(ctx context.Context, alias, primary, userID, jobTitle string) {
	var jt *string
	if jobTitle != "" {
		jt = &jobTitle
	}
	a := &store.EmailAlias{
		AliasEmail:   alias,
		PrimaryEmail: primary,
		UserID:       userID,
		JobTitle:     jt,
	}
	if err := r.store.CacheAlias(ctx, a); err != nil {
		slog.Warn("caching alias resolution failed", "alias", alias, "error", err)
	}
}
