package domain

// DefaultRoleKey identifies the role attached to every newly created user.
// The role is provisioned at startup; a deployment without it is misconfigured.
const (
	DefaultRoleKey  = "default"
	DefaultRoleName = "Default"
)

// Role is an immutable value object. ID 0 means the role has not been
// persisted yet; the storage layer assigns the real identifier.
type Role struct {
	ID   int64  `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// User models an account in the system. Values are never mutated in place:
// an update produces a whole new User that replaces the stored record.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsVerified   bool   `json:"is_verified"`
	Roles        []Role `json:"roles"`
}

// RoleIDs returns the identifiers of the user's roles in assignment order.
func (u User) RoleIDs() []int64 {
	ids := make([]int64, len(u.Roles))
	for i, r := range u.Roles {
		ids[i] = r.ID
	}
	return ids
}
