// Package access decides whether a user may join or monitor a channel.
// It is pure: no I/O, no state, fail closed on anything unrecognized.
package access

import "github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"

// CanJoin reports whether the user may join the channel as their primary.
func CanJoin(user *domain.UserProfile, ch *domain.ChannelDefinition) bool {
	switch ch.Type {
	case domain.ChannelPublic:
		return true
	case domain.ChannelDepartment:
		return user.Staff || user.Department == ch.Department
	case domain.ChannelStaff:
		return user.Staff
	case domain.ChannelCustom:
		if user.Staff {
			return true
		}
		if ch.Department != "" && user.Department != ch.Department {
			return false
		}
		if len(ch.AllowedRoles) > 0 && !user.HasAnyRole(ch.AllowedRoles) {
			return false
		}
		return true
	default:
		return false
	}
}

// CanMonitor reports whether the user may monitor the channel. Monitoring is
// a staff-only capability layered on top of the normal access rules.
func CanMonitor(user *domain.UserProfile, ch *domain.ChannelDefinition) bool {
	return user.Staff && CanJoin(user, ch)
}
