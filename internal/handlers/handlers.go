// Package handlers implements the HTTP surface of the video clipper:
// upload, clip generation, configuration introspection, and health checks.
package handlers

import (
	"context"

	"video-clipper/internal/config"
	"video-clipper/internal/planner"
	"video-clipper/internal/pool"
	"video-clipper/internal/registry"
)

// VideoStore is the registry surface the handlers need.
type VideoStore interface {
	Register(ctx context.Context, video registry.Video) error
	Get(ctx context.Context, id string) (registry.Video, error)
	Count() int
}

// DurationProber reports the duration of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ClipGenerator encodes planned segments into clip files.
type ClipGenerator interface {
	Generate(ctx context.Context, videoID, sourcePath, outputDir string, segments []planner.Segment) ([]pool.Clip, error)
}

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	cfg    config.Config
	store  VideoStore
	prober DurationProber
	clips  ClipGenerator
}

// New wires the handler set. The config is copied; it is resolved once at
// startup and never mutated afterwards.
func New(cfg config.Config, store VideoStore, prober DurationProber, clips ClipGenerator) *Handlers {
	return &Handlers{
		cfg:    cfg,
		store:  store,
		prober: prober,
		clips:  clips,
	}
}
