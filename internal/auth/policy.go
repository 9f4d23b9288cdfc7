package auth

import "github.com/spec-kit/request-checker/internal/domain"

// CanEdit reports whether user may change ticket content or delete it.
// Admins may edit anything; sales only what they created.
func CanEdit(ticket *domain.Ticket, user *domain.User) bool {
	if ticket == nil || user == nil {
		return false
	}
	switch user.Role {
	case domain.UserRoleAdmin:
		return true
	case domain.UserRoleSales:
		return ticket.CreatedBy == user.ID
	default:
		return false
	}
}

// CanUpdateStatus is role-only; repository scoping limits partners to their
// own tickets.
func CanUpdateStatus(user *domain.User) bool {
	return user != nil && user.Role == domain.UserRolePartner
}

// CanCreate reports whether user may open tickets.
func CanCreate(user *domain.User) bool {
	return user != nil && (user.Role == domain.UserRoleSales || user.Role == domain.UserRoleAdmin)
}

// CanViewDashboard gates the admin overview.
func CanViewDashboard(user *domain.User) bool {
	return user != nil && user.Role == domain.UserRoleAdmin
}
