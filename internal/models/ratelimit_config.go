package models

import "time"

// RatelimitConfig holds the per-client gate rate (ulule format, e.g. "10-M", "100-H").
type RatelimitConfig struct {
	ConfigKey  string    `json:"config_key"`
	Rate       string    `json:"rate"`
	FailClosed bool      `json:"fail_closed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
