package models

// UserRole gates API access. Operators run the day-to-day ingest and
// confirmation flow; admins additionally approve and reject.
type UserRole string

const (
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
)

var roleRank = map[UserRole]int{
	RoleOperator: 1,
	RoleAdmin:    2,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

// HasAtLeast reports whether the role meets the required tier.
func HasAtLeast(role, required UserRole) bool {
	return roleRank[role] >= roleRank[required]
}

type User struct {
	ID           string   `json:"id" db:"id"`
	Email        string   `json:"email" db:"email"`
	PasswordHash string   `json:"-" db:"password_hash"`
	Role         UserRole `json:"role" db:"role"`
	IsActive     bool     `json:"is_active" db:"is_active"`
}
