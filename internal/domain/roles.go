// Package domain defines shared domain constants and types.
package domain

const (
	// RoleOwner represents the bot owner with the highest privileges.
	RoleOwner = "owner"
	// RoleAdmin represents staff allowed to approve or reject requests.
	RoleAdmin = "admin"
	// RoleViewer represents staff limited to reading the transaction history.
	RoleViewer = "viewer"
	// RoleUser represents a regular requester with no elevated privileges.
	RoleUser = "user"
)

// Role priorities used when comparing privilege levels.
const (
	RolePriorityOwner  = 40
	RolePriorityAdmin  = 30
	RolePriorityViewer = 20
	RolePriorityUser   = 10
)

// RolePriority maps a role to its numeric priority; unknown roles map to 0.
func RolePriority(role string) int {
	switch role {
	case RoleOwner:
		return RolePriorityOwner
	case RoleAdmin:
		return RolePriorityAdmin
	case RoleViewer:
		return RolePriorityViewer
	case RoleUser:
		return RolePriorityUser
	default:
		return 0
	}
}

// CanDecide reports whether a role may approve or reject transaction requests.
// Viewers and regular users may not.
func CanDecide(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}
