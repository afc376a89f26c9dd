package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"
)

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Handle         string    `json:"handle"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsBlocked() bool { return u.Status == UserStatusBlocked }

// CurrentUser is the session's denormalized copy of a User.
type CurrentUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *CurrentUser) IsAdmin() bool { return c.Role == RoleAdmin }

// Snapshot copies the fields a session keeps about u.
func (u *User) Snapshot() CurrentUser {
	return CurrentUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
