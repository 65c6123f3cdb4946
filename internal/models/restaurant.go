package models

import "time"

type Restaurant struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CuisineType string    `json:"cuisine_type"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RestaurantFilter struct {
	CuisineType string
	Location    string // substring, case-insensitive
	Limit       int
	Offset      int
}
