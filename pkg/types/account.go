// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Role is an account's privilege level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCurator Role = "curator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCurator
}

// Account is a user who may log in or use the API.
// Password holds a bcrypt hash; it is empty while a reset is pending and
// Code holds the one-time reset code.
type Account struct {
	Meta `yaml:",inline"`

	Email    string   `json:"email" yaml:"email"`
	Role     Role     `json:"role" yaml:"role"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	Code     string   `json:"code,omitempty" yaml:"code,omitempty"`
	APIKey   string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Labels   []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Disabled bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Login    string   `json:"login,omitempty" yaml:"login,omitempty"`
}

// IsAdmin reports whether the account has the admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
