package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"github.com/politicianfinder/edge-gate/internal/services/auth"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

// Rate-limit store backends selectable through configuration.
const (
	StoreMemory      = "memory"
	StoreRedis       = "redis"
	StoreUluleMemory = "ulule-memory"
	StoreUluleRedis  = "ulule-redis"
)

// Token verifiers selectable through configuration.
const (
	VerifierPlaceholder = auth.KindPlaceholder
	VerifierJWT         = auth.KindJWT
	VerifierRemote      = auth.KindRemote
)

func init() {
	Validate = validator.New()

	// These should never fail in normal operation
	if err := Validate.RegisterValidation("rate_store", validateRateStore); err != nil {
		panic(fmt.Sprintf("failed to register rate_store validator: %v", err))
	}
	if err := Validate.RegisterValidation("token_verifier", validateTokenVerifier); err != nil {
		panic(fmt.Sprintf("failed to register token_verifier validator: %v", err))
	}
	if err := Validate.RegisterValidation("ulule_rate", validateUluleRate); err != nil {
		panic(fmt.Sprintf("failed to register ulule_rate validator: %v", err))
	}
	if err := Validate.RegisterValidation("cors_origin", validateCORSOrigin); err != nil {
		panic(fmt.Sprintf("failed to register cors_origin validator: %v", err))
	}
}

func validateRateStore(fl validator.FieldLevel) bool {
	return ValidateRateStore(fl.Field().String()) == nil
}

func validateTokenVerifier(fl validator.FieldLevel) bool {
	return ValidateTokenVerifier(fl.Field().String()) == nil
}

func validateUluleRate(fl validator.FieldLevel) bool {
	return ValidateRate(fl.Field().String()) == nil
}

func validateCORSOrigin(fl validator.FieldLevel) bool {
	return ValidateOrigin(fl.Field().String()) == nil
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateRateStore validates a rate-limit store name
func ValidateRateStore(value string) error {
	switch value {
	case StoreMemory, StoreRedis, StoreUluleMemory, StoreUluleRedis:
		return nil
	default:
		return fmt.Errorf("invalid rate limit store: %s (must be 'memory', 'redis', 'ulule-memory', or 'ulule-redis')", value)
	}
}

// ValidateTokenVerifier validates a verifier name
func ValidateTokenVerifier(value string) error {
	switch value {
	case VerifierPlaceholder, VerifierJWT, VerifierRemote:
		return nil
	default:
		return fmt.Errorf("invalid verifier: %s (must be 'placeholder', 'jwt', or 'remote')", value)
	}
}

// ValidateRate validates a formatted rate such as "10-M" and rejects zero limits.
func ValidateRate(value string) error {
	p, err := ratelimit.PolicyFromRate(value)
	if err != nil {
		return fmt.Errorf("invalid rate %q: %w", value, err)
	}
	return p.Validate()
}

// ValidateOrigin accepts "*", a single-wildcard origin such as "https://*.example.com",
// or a scheme://host[:port] origin with no path.
func ValidateOrigin(value string) error {
	if value == "*" {
		return nil
	}
	if strings.Count(value, "*") > 1 {
		return fmt.Errorf("invalid origin %q: at most one wildcard is allowed", value)
	}
	u, err := url.Parse(strings.Replace(value, "*", "wildcard", 1))
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", value, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid origin %q: scheme must be http or https", value)
	}
	if u.Host == "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return fmt.Errorf("invalid origin %q: must be scheme://host[:port]", value)
	}
	return nil
}
