package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/handspace/internal/store"
)

// RecordingHandler handles HTTP requests for recorded joint tracks.
type RecordingHandler struct {
	store *store.Store
}

// NewRecordingHandler creates a new RecordingHandler with the given store.
func NewRecordingHandler(s *store.Store) *RecordingHandler {
	return &RecordingHandler{store: s}
}

// ServeHTTP routes /api/recordings, /api/recordings/{id} and
// /api/recordings/{id}/samples.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch {
	case sub == "samples" && r.Method == http.MethodGet:
		h.samples(w, id)
	case sub == "samples":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	case sub != "":
		writeError(w, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.get(w, id)
	case r.Method == http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type recordingResponse struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	DetectionRate int     `json:"detection_rate"`
	MaxDistance   float64 `json:"max_distance"`
	Frames        int     `json:"frames"`
	StartedAt     string  `json:"started_at"`
	EndedAt       string  `json:"ended_at,omitempty"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

type samplesResponse struct {
	RecordingID string              `json:"recording_id"`
	Samples     []store.JointSample `json:"samples"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	resp := recordingResponse{
		ID:            rec.ID,
		Source:        rec.Source,
		DetectionRate: rec.DetectionRate,
		MaxDistance:   rec.MaxDistance,
		Frames:        rec.Frames,
		StartedAt:     rec.StartedAt.Format(time.RFC3339),
	}
	if rec.EndedAt != nil {
		resp.EndedAt = rec.EndedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *RecordingHandler) list(w http.ResponseWriter) {
	recs, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recs)),
	}
	for _, rec := range recs {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) get(w http.ResponseWriter, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	writeJSON(w, http.StatusOK, toRecordingResponse(rec))
}

func (h *RecordingHandler) samples(w http.ResponseWriter, id string) {
	if _, err := h.store.Recordings().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	samples, err := h.store.Recordings().Samples(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get samples")
		return
	}
	if samples == nil {
		samples = []store.JointSample{}
	}

	writeJSON(w, http.StatusOK, samplesResponse{RecordingID: id, Samples: samples})
}

func (h *RecordingHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
