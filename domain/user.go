package domain

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleStaff      Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePharmacist || r == RoleStaff
}

type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	Password  string    `json:"-" db:"password"`
	Roles     []Role    `json:"roles" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasRole reports whether the user holds any of the given roles.
func (u User) HasRole(roles ...Role) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
