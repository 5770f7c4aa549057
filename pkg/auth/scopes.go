package auth

import "strings"

const ScopeAll = "*"

const (
	// Match scopes (end users)
	ScopeMatchesAll       = "matches:*"
	ScopeMatchesRead      = "matches:read"
	ScopeMatchesWrite     = "matches:write"     // View/save/apply/rate flags
	ScopeMatchesRecompute = "matches:recompute" // Request a fresh ranking

	// Job scopes
	ScopeJobsAll    = "jobs:*"
	ScopeJobsRead   = "jobs:read"
	ScopeJobsIngest = "jobs:ingest" // Crawler upserts and embeddings
	ScopeJobsAdmin  = "jobs:admin"  // Statistics and stale-job sweeps

	// Profile collaborator
	ScopeProfilesNotify = "profiles:notify"
)

// DefaultUserScopes are granted to bearer tokens that carry no explicit scopes.
var DefaultUserScopes = []string{
	ScopeMatchesRead,
	ScopeMatchesWrite,
	ScopeMatchesRecompute,
	ScopeJobsRead,
}

// ServiceScopes are granted to API-key principals (crawler, profile service).
var ServiceScopes = []string{
	ScopeJobsIngest,
	ScopeJobsAdmin,
	ScopeJobsRead,
	ScopeProfilesNotify,
}

// DomainScopeCategories organizes scopes for display
var DomainScopeCategories = map[string][]string{
	"Matches": {
		ScopeMatchesAll,
		ScopeMatchesRead,
		ScopeMatchesWrite,
		ScopeMatchesRecompute,
	},
	"Jobs": {
		ScopeJobsAll,
		ScopeJobsRead,
		ScopeJobsIngest,
		ScopeJobsAdmin,
	},
	"Profiles": {
		ScopeProfilesNotify,
	},
}

// HasScope reports whether granted satisfies required, honoring "*" and
// "domain:*" wildcards.
func HasScope(granted []string, required string) bool {
	domain, _, _ := strings.Cut(required, ":")
	for _, g := range granted {
		switch {
		case g == ScopeAll, g == required:
			return true
		case strings.HasSuffix(g, ":*") && strings.TrimSuffix(g, ":*") == domain:
			return true
		}
	}
	return false
}
