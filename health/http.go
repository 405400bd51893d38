package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler answers as long as the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs the probe and answers with a bare status.
// Degraded still reads as ready: the site serves with a sweep backlog.
func ReadinessHandler(probe *Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := probe.Run(r.Context())

		w.Header().Set("Content-Type", "text/plain")
		switch report.Status {
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
		case StatusDegraded:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		}
	}
}

// ReportResponse is the JSON body of the detailed health endpoint.
type ReportResponse struct {
	Status    Status                     `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Services  map[string]ServiceResponse `json:"services"`
}

// ServiceResponse is one service's entry in the detailed report.
type ServiceResponse struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ReportHandler runs the probe and answers with the per-service
// breakdown.
func ReportHandler(probe *Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := probe.Run(r.Context())

		response := ReportResponse{
			Status:    report.Status,
			Timestamp: report.Checked.Format(time.RFC3339),
			Services:  make(map[string]ServiceResponse, len(report.Services)),
		}
		for name, result := range report.Services {
			service := ServiceResponse{
				Status:   result.Status,
				Message:  result.Message,
				Duration: result.Duration.String(),
				Details:  result.Details,
			}
			if result.Error != nil {
				service.Error = result.Error.Error()
			}
			response.Services[name] = service
		}

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers mounts the probe endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, probe *Probe) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(probe))
	mux.HandleFunc("/api/health", ReportHandler(probe))
}
