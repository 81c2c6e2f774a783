package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"toolgate/pkg/telemetry/health"
	"toolgate/pkg/upstream"
)

// HealthHandler serves GET /health. It probes upstream reachability live
// with a lightweight GET against the upstream model-listing endpoint, so the
// answer reflects the current state rather than a cached probe.
type HealthHandler struct {
	Client *upstream.Client
}

// NewHealthHandler creates the health check handler.
func NewHealthHandler(client *upstream.Client) *HealthHandler {
	return &HealthHandler{Client: client}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"timestamp": time.Now().Unix(),
	}

	if err := h.Client.HealthCheck(r.Context()); err != nil {
		response["status"] = "unhealthy"
		response["error"] = err.Error()
	} else {
		response["status"] = "healthy"
		response["upstream"] = "reachable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadyHandler serves GET /ready from the background prober's cached status.
// Unlike /health it never blocks on the upstream.
type ReadyHandler struct {
	Prober *health.Prober
}

// NewReadyHandler creates the readiness handler.
func NewReadyHandler(prober *health.Prober) *ReadyHandler {
	return &ReadyHandler{Prober: prober}
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.Prober.Status()

	state := "ready"
	statusCode := http.StatusOK
	if !status.Reachable {
		state = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    state,
		"timestamp": time.Now().Unix(),
	}
	if !status.LastProbe.IsZero() {
		response["last_probe"] = status.LastProbe.Unix()
	}
	if status.LastError != nil {
		response["error"] = status.LastError.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// InfoHandler serves GET / with service metadata and the endpoint list.
type InfoHandler struct {
	ModelID string
	Version string
}

// NewInfoHandler creates the service info handler.
func NewInfoHandler(modelID, version string) *InfoHandler {
	return &InfoHandler{ModelID: modelID, Version: version}
}

// ServeHTTP implements http.Handler.
func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	response := map[string]interface{}{
		"service": "toolgate",
		"version": h.Version,
		"model":   h.ModelID,
		"endpoints": []string{
			"POST /v1/chat/completions",
			"GET /v1/models",
			"GET /health",
			"GET /ready",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
