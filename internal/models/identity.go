package models

import "time"

// Identity is the caller identity produced by a successful bearer token verification.
type Identity struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
	Audience  string    `json:"aud,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Anonymous reports whether the identity carries no subject (placeholder verification).
func (i *Identity) Anonymous() bool {
	return i == nil || i.Subject == ""
}
