package domain

import "time"

// Actor is the member an interaction or event originates from.
type Actor struct {
	ID           string
	Username     string
	Tag          string
	AvatarURL    string
	Bot          bool
	Roles        []string
	Permissions  int64
	PremiumSince *time.Time
}

// HasRole reports whether the actor holds roleID.
func (a Actor) HasRole(roleID string) bool {
	for _, r := range a.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor holds at least one of roleIDs.
func (a Actor) HasAnyRole(roleIDs []string) bool {
	for _, id := range roleIDs {
		if a.HasRole(id) {
			return true
		}
	}
	return false
}
