package types

// UserRole is the role carried in an access token
type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleDoctor  UserRole = "doctor"
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// UserClaims represents the authenticated principal
type UserClaims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
}

// IsDoctor reports whether the principal is a doctor
func (c *UserClaims) IsDoctor() bool {
	return c != nil && c.Role == RoleDoctor
}

// Contact is the reachable identity of a user as known to the directory
type Contact struct {
	UserID         string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Role           UserRole `json:"role"`
	Specialization string   `json:"specialization,omitempty"`
	Hospital       string   `json:"hospital,omitempty"`
}
