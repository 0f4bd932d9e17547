package domain

type UserID string

// UserProfile is the identity resolved by the external backend at connect
// time. It is read-only for the lifetime of a session.
type UserProfile struct {
	ID         UserID   `json:"id"`
	Username   string   `json:"username"`
	Department string   `json:"department,omitempty"`
	Roles      []string `json:"roles"`
	Staff      bool     `json:"staff"`
}

// DefaultDepartment is the roster placeholder for users without one.
const DefaultDepartment = "civilian"

// DisplayDepartment returns the department or the default placeholder.
func (u *UserProfile) DisplayDepartment() string {
	if u.Department == "" {
		return DefaultDepartment
	}
	return u.Department
}

// PrimaryRole returns the user's first role, or "member" when none are set.
func (u *UserProfile) PrimaryRole() string {
	if len(u.Roles) == 0 {
		return "member"
	}
	return u.Roles[0]
}

// HasAnyRole reports whether the user holds at least one of the given roles.
func (u *UserProfile) HasAnyRole(roles []string) bool {
	for _, want := range roles {
		for _, have := range u.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
