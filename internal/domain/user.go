package domain

import "time"

// UserRole enumerates the three organization roles.
type UserRole string

const (
	UserRoleSales UserRole = "sales"
	UserRoleAdmin UserRole = "admin"
	// UserRolePartner is the external partner organization role.
	UserRolePartner UserRole = "kddi"
)

var userRoleLabels = map[UserRole]string{
	UserRoleSales:   "営業",
	UserRoleAdmin:   "管理者",
	UserRolePartner: "KDDI担当",
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := userRoleLabels[r]
	return ok
}

// Label returns the display label for the role.
func (r UserRole) Label() string {
	if label, ok := userRoleLabels[r]; ok {
		return label
	}
	return string(r)
}

// User is an identity plus role record.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        UserRole
	Department  *string
	CreatedAt   time.Time
}

// Identity is what the external identity provider asserts about a caller.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	Role        UserRole
}
