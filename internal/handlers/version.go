package handlers

import (
	"net/http"
	"runtime"
)

// Build metadata, set with -ldflags "-X github.com/politicianfinder/edge-gate/internal/handlers.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// VersionInfo is returned by the /version endpoint.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// CurrentVersion returns the build metadata of the running binary.
func CurrentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// VersionHandler handles the /version endpoint
func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, CurrentVersion())
}
