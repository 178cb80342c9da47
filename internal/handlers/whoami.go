package handlers

import (
	"net/http"

	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/request"
)

// WhoAmIResponse echoes what the gate learned about the caller.
type WhoAmIResponse struct {
	Identity  *models.Identity `json:"identity"`
	Anonymous bool             `json:"anonymous"`
	ClientIP  string           `json:"client_ip"`
	RequestID string           `json:"request_id,omitempty"`
	Method    string           `json:"method"`
	Path      string           `json:"path"`
}

// WhoAmIHandler is the forward target used when no upstream is configured.
// It reports the identity the auth stage attached to the request.
type WhoAmIHandler struct {
	clientKey func(*http.Request) string
}

// NewWhoAmIHandler creates the handler. clientKey resolves the caller address the same way the gate does.
func NewWhoAmIHandler(clientKey func(*http.Request) string) *WhoAmIHandler {
	if clientKey == nil {
		clientKey = request.RemoteHost
	}
	return &WhoAmIHandler{clientKey: clientKey}
}

func (h *WhoAmIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r.Context())
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "no verified identity on request")
		return
	}
	respondJSON(w, http.StatusOK, WhoAmIResponse{
		Identity:  identity,
		Anonymous: identity.Anonymous(),
		ClientIP:  h.clientKey(r),
		RequestID: request.RequestIDFromContext(r.Context()),
		Method:    r.Method,
		Path:      r.URL.Path,
	})
}
