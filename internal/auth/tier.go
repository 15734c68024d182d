// Package auth implements the credential and access-decision core of the
// platform: JWT access tokens, persisted refresh tokens, and the single
// tier-comparison rule that gates subscriber-only content.
package auth

import (
	"strings"
	"time"
)

// Tier is an ordered subscription level. Higher tiers include everything
// the lower ones grant, so access checks reduce to an integer comparison.
type Tier int

const (
	TierNone Tier = iota
	TierLite
	TierFan
	TierPro
)

var tierNames = map[Tier]string{
	TierNone: "none",
	TierLite: "lite",
	TierFan:  "fan",
	TierPro:  "pro",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "none"
}

// ParseTier maps a stored or client-supplied tier name to its level.
// Unknown values collapse to TierNone rather than failing; a bad value in
// the database must never grant paid access by accident.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lite":
		return TierLite
	case "fan":
		return TierFan
	case "pro":
		return TierPro
	default:
		return TierNone
	}
}

// Role names the account kind. Roles and tiers are independent axes:
// a role says what the account is, a tier says what it has paid for.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleArtist  Role = "ARTIST"
	RolePremium Role = "PREMIUM"
	RoleFree    Role = "FREE"
)

// ParseRole normalizes a stored role string. Unknown values degrade to
// RoleFree for the same reason unknown tiers degrade to none.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleArtist):
		return RoleArtist
	case string(RolePremium):
		return RolePremium
	default:
		return RoleFree
	}
}

// Identity is the resolved authenticated actor a request acts as. It is
// loaded fresh from the user store on every authenticated request; access
// tokens carry only the subject id, never role or tier, so changes to
// either take effect immediately instead of at token expiry.
type Identity struct {
	ID              uint64
	Email           string
	Name            string
	Role            Role
	Tier            Tier
	SubscriptionEnd *time.Time
}

// EffectiveTierAt returns the tier the identity actually holds at the given
// instant. A paid tier whose subscription end date has passed counts as
// TierNone: the stored tier column is not eagerly cleared on expiry, so the
// lapse check happens here, at decision time, every time.
func (id *Identity) EffectiveTierAt(now time.Time) Tier {
	if id == nil {
		return TierNone
	}
	if id.Tier != TierNone && id.SubscriptionEnd != nil && id.SubscriptionEnd.Before(now) {
		return TierNone
	}
	return id.Tier
}

// HasAccessAt is the one access decision for tier-gated content, shared by
// middleware and handlers. Rules, in order:
//
//   - required == TierNone means public content: allowed for everyone,
//     authenticated or not.
//   - a nil identity (unauthenticated) is denied any required tier.
//   - admins and artists bypass the tier comparison and the lapse check.
//   - otherwise the effective tier (lapsed subscriptions collapse to none)
//     must be at least the required tier.
//
// The function is pure over its inputs plus the supplied clock so expiry
// behaviour is deterministic under test.
func HasAccessAt(ident *Identity, required Tier, now time.Time) bool {
	if required <= TierNone {
		return true
	}
	if ident == nil {
		return false
	}
	if ident.Role == RoleAdmin || ident.Role == RoleArtist {
		return true
	}
	return ident.EffectiveTierAt(now) >= required
}

// HasAccess is HasAccessAt against the wall clock.
func HasAccess(ident *Identity, required Tier) bool {
	return HasAccessAt(ident, required, time.Now().UTC())
}
