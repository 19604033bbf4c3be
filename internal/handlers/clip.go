package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"video-clipper/internal/logging"
	"video-clipper/internal/metrics"
	"video-clipper/internal/planner"
	"video-clipper/internal/registry"
)

// ClipRequest is the body of POST /clip.
type ClipRequest struct {
	VideoID   string  `json:"video_id"`
	MaxLength float64 `json:"max_length"`
}

// ClipResponse is the body of a successful POST /clip.
type ClipResponse struct {
	VideoID  string      `json:"video_id"`
	Duration float64     `json:"duration"`
	Clips    []clipEntry `json:"clips"`
}

type clipEntry struct {
	ID           string  `json:"id"`
	Index        int     `json:"index"`
	Start        float64 `json:"start_time"`
	Duration     float64 `json:"duration"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// Clip generates the clips for a registered video. The lookup happens
// before any planning so an unknown id never reaches the encoder.
func (h *Handlers) Clip(w http.ResponseWriter, r *http.Request) {
	var req ClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.VideoID == "" {
		writeJSONError(w, "video_id is required", http.StatusBadRequest)
		return
	}

	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = h.cfg.Limits.DefaultMaxClipLengthSeconds
	}

	video, err := h.store.Get(r.Context(), req.VideoID)
	if errors.Is(err, registry.ErrNotFound) {
		metrics.ClipRequestsTotal.WithLabelValues("not_found").Inc()
		writeJSONError(w, "video not found", http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ClipRequestsTotal.WithLabelValues("error").Inc()
		logging.Error("Registry lookup for %s failed: %v", req.VideoID, err)
		writeJSONError(w, "failed to look up video", http.StatusInternalServerError)
		return
	}

	segments, err := planner.Plan(video.Duration, maxLength, h.cfg.Optimization.MinClipDurationSeconds)
	if err != nil {
		metrics.ClipRequestsTotal.WithLabelValues("error").Inc()
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	clips, err := h.clips.Generate(r.Context(), video.ID, video.SourcePath, h.cfg.Server.OutputDir, segments)
	if err != nil {
		metrics.ClipRequestsTotal.WithLabelValues("error").Inc()
		logging.Error("Clip generation for %s failed: %v", video.ID, err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]clipEntry, 0, len(clips))
	for _, c := range clips {
		entries = append(entries, clipEntry{
			ID:           c.ID,
			Index:        c.Index,
			Start:        c.Start,
			Duration:     c.Duration,
			URL:          c.URL,
			ThumbnailURL: c.ThumbnailURL,
		})
	}

	metrics.ClipRequestsTotal.WithLabelValues("success").Inc()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ClipResponse{
		VideoID:  video.ID,
		Duration: video.Duration,
		Clips:    entries,
	})
}
