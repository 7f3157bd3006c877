package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/switchbot-mqtt/internal/device"
)

type deviceResponse struct {
	Address       string     `json:"address"`
	Authenticated bool       `json:"authenticated"`
	Operations    int        `json:"operations"`
	Failures      int        `json:"failures"`
	LastError     string     `json:"last_error,omitempty"`
	LastAttempt   *time.Time `json:"last_attempt,omitempty"`
}

func toDeviceResponse(info device.HandleInfo) deviceResponse {
	resp := deviceResponse{
		Address:       info.Address,
		Authenticated: info.Authenticated,
		Operations:    info.Stats.Operations,
		Failures:      info.Stats.Failures,
		LastError:     info.Stats.LastError,
	}
	if !info.Stats.LastAttempt.IsZero() {
		t := info.Stats.LastAttempt
		resp.LastAttempt = &t
	}
	return resp
}

// handleHealth returns 200 while the MQTT connection is up, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	connected := s.status.IsConnected()

	status, code := "ok", http.StatusOK
	if !connected {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        s.version,
		"mqtt_connected": connected,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.status.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"mqtt_connected": m.Connected,
		"messages": map[string]uint64{
			"received": m.Received,
			"ignored":  m.Ignored,
			"dropped":  m.Dropped,
		},
		"commands": map[string]uint64{
			"executed": m.Executed,
			"failed":   m.Failed,
		},
		"devices": m.Devices,
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	infos := s.status.Devices()
	devices := make([]deviceResponse, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, toDeviceResponse(info))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	address, err := device.CanonicalAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid device address")
		return
	}

	for _, info := range s.status.Devices() {
		if info.Address == address {
			writeJSON(w, http.StatusOK, toDeviceResponse(info))
			return
		}
	}
	writeNotFound(w, "device not seen since startup")
}
