// Package users maps statement-file metadata (account holder names,
// account numbers found in export headers) to stable user IDs, so multiple
// people's exports can live in one ledger.
package users

import (
	"strings"

	"github.com/parkozhao/spendscope/internal/config"
)

// Registry resolves file metadata to user IDs.
type Registry struct {
	profiles    []config.UserProfile
	defaultUser string
}

// NewRegistry builds a registry from configured profiles. defaultUser is
// returned when nothing matches.
func NewRegistry(profiles []config.UserProfile, defaultUser string) *Registry {
	return &Registry{profiles: profiles, defaultUser: defaultUser}
}

// Identify resolves a user ID from a name and/or account number found in a
// statement header. Account numbers match exactly; names match if either
// contains the other, case-insensitively, since exports are inconsistent
// about nicknames versus legal names.
func (reg *Registry) Identify(name, account string) string {
	for _, p := range reg.profiles {
		if account != "" && account == p.AlipayAccount {
			return p.ID
		}
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		for _, alias := range p.Aliases {
			a := strings.ToLower(alias)
			if strings.Contains(lower, a) || strings.Contains(a, lower) {
				return p.ID
			}
		}
	}
	return reg.defaultUser
}
