package models

import "time"

// CorsConfig holds the origins the gate advertises in Access-Control-Allow-Origin.
type CorsConfig struct {
	ConfigKey      string    `json:"config_key"`
	AllowedOrigins string    `json:"allowed_origins"` // Comma-separated, "*" for any
	MaxAge         int       `json:"max_age"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
