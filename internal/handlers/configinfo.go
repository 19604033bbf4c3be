package handlers

import (
	"net/http"

	"video-clipper/internal/sysinfo"
)

// ConfigResponse tells the client what the server can absorb so it can
// size its own upload and polling concurrency.
type ConfigResponse struct {
	MaxConcurrentClips  int        `json:"max_concurrent_clips"`
	MaxFileSize         int64      `json:"max_file_size"`
	MaxConcurrentVideos int        `json:"max_concurrent_videos"`
	DefaultClipLength   float64    `json:"default_clip_length"`
	SystemInfo          SystemInfo `json:"system_info"`
}

// SystemInfo is the host introspection block of GET /config.
type SystemInfo struct {
	CPUs          int     `json:"cpus"`
	MemoryFreeGB  float64 `json:"memory_free_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
}

// GetConfig returns the resolved limits and host capacity.
func (h *Handlers) GetConfig(w http.ResponseWriter, _ *http.Request) {
	info := sysinfo.Collect()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ConfigResponse{
		MaxConcurrentClips:  h.cfg.Performance.MaxConcurrentClips,
		MaxFileSize:         h.cfg.Server.MaxFileSizeBytes,
		MaxConcurrentVideos: h.cfg.MaxConcurrentVideos(),
		DefaultClipLength:   h.cfg.Limits.DefaultMaxClipLengthSeconds,
		SystemInfo: SystemInfo{
			CPUs:          info.CPUs,
			MemoryFreeGB:  info.MemoryFreeGB,
			MemoryTotalGB: info.MemoryTotalGB,
		},
	})
}
