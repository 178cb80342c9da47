package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/cors"
)

const (
	// CORSAllowMethods is advertised on every gated response.
	CORSAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	// CORSAllowHeaders is advertised on every gated response.
	CORSAllowHeaders = "Content-Type, Authorization"
)

type corsPolicy struct {
	anyOrigin bool
	matcher   *cors.Cors
	maxAge    int
}

// CORSStage writes the CORS headers on every gated response and answers preflight
// requests itself, so OPTIONS never reaches the rate limit or auth stages.
type CORSStage struct {
	policy atomic.Pointer[corsPolicy]
}

// NewCORSStage creates the stage. An empty origin list or "*" allows any origin.
func NewCORSStage(origins []string, maxAge int) *CORSStage {
	s := &CORSStage{}
	s.SetOrigins(origins, maxAge)
	return s
}

// SetOrigins swaps the allowed origins. Origins may use rs/cors wildcards such as https://*.example.com.
func (s *CORSStage) SetOrigins(origins []string, maxAge int) {
	p := &corsPolicy{maxAge: maxAge}
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			p.anyOrigin = true
		}
		if o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		p.anyOrigin = true
	}
	if !p.anyOrigin {
		p.matcher = cors.New(cors.Options{AllowedOrigins: cleaned})
	}
	s.policy.Store(p)
}

// Name implements Stage.
func (s *CORSStage) Name() string { return "cors" }

// Check implements Stage.
func (s *CORSStage) Check(r *http.Request) Verdict {
	p := s.policy.Load()
	h := http.Header{}

	if p.anyOrigin {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Vary", "Origin")
		if origin := r.Header.Get("Origin"); origin != "" && p.matcher.OriginAllowed(r) {
			h.Set("Access-Control-Allow-Origin", origin)
		}
	}
	h.Set("Access-Control-Allow-Methods", CORSAllowMethods)
	h.Set("Access-Control-Allow-Headers", CORSAllowHeaders)

	if r.Method == http.MethodOptions {
		if p.maxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(p.maxAge))
		}
		return Verdict{Outcome: Respond, Status: http.StatusNoContent, Header: h}
	}
	return Verdict{Outcome: Continue, Header: h}
}
