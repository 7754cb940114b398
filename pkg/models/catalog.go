package models

import "time"

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Model          string    `json:"model"`
	Description    string    `json:"description"`
	BasePrice      float64   `json:"base_price"`
	FabricPrice    float64   `json:"fabric_price"`
	TailoringPrice float64   `json:"tailoring_price"`
	Sizes          []string  `json:"sizes"`
	Images         []string  `json:"images"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is a staff account row. The password hash travels only between
// the gateway and the auth package, never out to API clients.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
