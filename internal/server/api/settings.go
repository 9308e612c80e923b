package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/handspace/internal/tracker"
)

// Controller is the part of the running app the settings API changes.
type Controller interface {
	Rate() tracker.Rate
	SetRate(r tracker.Rate) error
	IsEnabled() bool
	SetEnabled(enabled bool)
	MaxDistance() float32
	SetMaxDistance(meters float32) error
	AutoToggle() bool
	SetAutoToggle(on bool) error
}

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	ctl Controller
}

// NewSettingsHandler creates a new SettingsHandler for the given controller.
func NewSettingsHandler(ctl Controller) *SettingsHandler {
	return &SettingsHandler{ctl: ctl}
}

type settingsResponse struct {
	DetectionRate tracker.Rate `json:"detection_rate"`
	Divisor       int          `json:"divisor"`
	Enabled       bool         `json:"enabled"`
	MaxDistance   float32      `json:"max_distance"`
	AutoToggle    bool         `json:"auto_toggle"`
}

// updateSettingsRequest fields are optional. DetectionRate accepts a rate
// name or its divisor. MaxDistance is in meters.
type updateSettingsRequest struct {
	DetectionRate *string  `json:"detection_rate"`
	Enabled       *bool    `json:"enabled"`
	MaxDistance   *float32 `json:"max_distance"`
	AutoToggle    *bool    `json:"auto_toggle"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) current() settingsResponse {
	rate := h.ctl.Rate()
	return settingsResponse{
		DetectionRate: rate,
		Divisor:       int(rate),
		Enabled:       h.ctl.IsEnabled(),
		MaxDistance:   h.ctl.MaxDistance(),
		AutoToggle:    h.ctl.AutoToggle(),
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate everything before changing anything.
	var rate tracker.Rate
	if req.DetectionRate != nil {
		var err error
		if rate, err = tracker.ParseRate(*req.DetectionRate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid detection rate")
			return
		}
	}
	if req.MaxDistance != nil && !(*req.MaxDistance > 0) {
		writeError(w, http.StatusBadRequest, "Max distance must be positive")
		return
	}

	if req.DetectionRate != nil {
		if err := h.ctl.SetRate(rate); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set detection rate")
			return
		}
	}
	if req.MaxDistance != nil {
		if err := h.ctl.SetMaxDistance(*req.MaxDistance); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set max distance")
			return
		}
	}
	if req.AutoToggle != nil {
		if err := h.ctl.SetAutoToggle(*req.AutoToggle); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set auto toggle")
			return
		}
	}

	if req.Enabled != nil {
		h.ctl.SetEnabled(*req.Enabled)
	}

	writeJSON(w, http.StatusOK, h.current())
}
