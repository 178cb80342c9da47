package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/politicianfinder/edge-gate/internal/logger"
	"github.com/politicianfinder/edge-gate/internal/request"
	"go.uber.org/zap"
)

// NewUpstreamProxy forwards admitted requests to the API behind the gate.
// Path and query are preserved; X-Forwarded-* headers are set from the inbound request.
func NewUpstreamProxy(upstreamURL string, timeout time.Duration, log *zap.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.New("upstream URL must include scheme and host")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := request.RequestIDFromContext(pr.In.Context()); id != "" {
				pr.Out.Header.Set("X-Request-ID", id)
			}
			if identity := request.IdentityFromContext(pr.In.Context()); !identity.Anonymous() {
				pr.Out.Header.Set("X-Gate-Subject", identity.Subject)
			}
		},
		Transport:      transport,
		ModifyResponse: stripUpstreamCORS,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("upstream_request_failed",
				zap.String("path", logger.SanitizePath(r.URL.Path)),
				zap.String("error", logger.SanitizeError(err)),
			)
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "upstream service unavailable")
		},
	}, nil
}

// stripUpstreamCORS drops the upstream's Access-Control-Allow-* headers. The gate
// has already written its own, and browsers reject a response carrying two
// Access-Control-Allow-Origin values.
func stripUpstreamCORS(resp *http.Response) error {
	for key := range resp.Header {
		if strings.HasPrefix(key, "Access-Control-Allow-") {
			resp.Header.Del(key)
		}
	}
	return nil
}
