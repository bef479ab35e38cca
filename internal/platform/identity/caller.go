package identity

import "slices"

const (
	RoleEmployee = "employee"
	RoleCustomer = "customer"
)

// Caller is the identity behind a request. The zero value is an anonymous caller.
type Caller struct {
	Name  string
	Roles []string
}

// Anonymous is the caller used when no bearer token was presented.
var Anonymous = Caller{}

// Authenticated reports whether the caller presented a valid token.
func (c Caller) Authenticated() bool {
	return c.Name != ""
}

func (c Caller) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
