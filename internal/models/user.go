package models

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleInvestor        Role = "investor"
	RoleRestaurantOwner Role = "restaurant_owner"
	RoleAdmin           Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleInvestor, RoleRestaurantOwner, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Name)) < 2 { return errors.New("name too short") }
	if !strings.Contains(u.Email, "@") { return errors.New("invalid email") }
	if u.Role == "" { u.Role = RoleInvestor }
	if !u.Role.Valid() { return errors.New("invalid role") }
	return nil
}
