package auth

import (
	"fmt"
	"net/http"
)

// Verifier kinds accepted by New.
const (
	KindPlaceholder = "placeholder"
	KindJWT         = "jwt"
	KindRemote      = "remote"
)

// Settings selects and configures a Verifier.
type Settings struct {
	Kind         string
	JWTSecret    string
	JWKSURL      string
	Issuer       string
	Audience     string
	RemoteURL    string
	RemoteAPIKey string
}

// New builds the verifier described by s. An empty kind selects the placeholder.
func New(s Settings, client *http.Client) (Verifier, error) {
	switch s.Kind {
	case KindPlaceholder, "":
		return PlaceholderVerifier{}, nil
	case KindJWT:
		var opts []JWTOption
		if s.JWTSecret != "" {
			opts = append(opts, WithSecret(s.JWTSecret))
		}
		if s.JWKSURL != "" {
			opts = append(opts, WithJWKS(NewJWKSManager(client), s.JWKSURL))
		}
		if s.Issuer != "" {
			opts = append(opts, WithIssuer(s.Issuer))
		}
		if s.Audience != "" {
			opts = append(opts, WithAudience(s.Audience))
		}
		v, err := NewJWTVerifier(opts...)
		if err != nil {
			return nil, err
		}
		return v, nil
	case KindRemote:
		v, err := NewRemoteVerifier(s.RemoteURL, s.RemoteAPIKey, client)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown verifier %q", s.Kind)
	}
}
