package user

import "time"

// User is a registered marketplace member. Password holds the salted
// credential and is never serialised.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	FirstName *string   `json:"firstName" db:"first_name"`
	LastName  *string   `json:"lastName" db:"last_name"`
	Avatar    *string   `json:"avatar" db:"avatar"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Summary is the public seller card attached to product reads.
type Summary struct {
	ID        string  `json:"id" db:"id"`
	Username  string  `json:"username" db:"username"`
	FirstName *string `json:"firstName" db:"first_name"`
	LastName  *string `json:"lastName" db:"last_name"`
}

// Summary returns the public seller card for u.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

// ProfileUpdate lists the mutable profile fields. Nil leaves a field as is.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Avatar    *string
}

// Apply copies the set fields of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.Avatar != nil {
		u.Avatar = p.Avatar
	}
}
