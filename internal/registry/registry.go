// Package registry tracks uploaded videos by generated id.
//
// Lookups are served from an in-memory map guarded by a read-write lock,
// since uploads and clip requests run concurrently. Every registration is
// also mirrored to a SQLite table so a restarted process can still answer
// clip requests for videos whose source files survive on disk. The in-memory
// map is bounded; the SQLite mirror and the source files are not (retention
// is out of scope).
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"video-clipper/internal/logging"
	"video-clipper/internal/metrics"
)

// ErrNotFound is returned when no video exists for the requested id.
var ErrNotFound = errors.New("video not found")

const defaultTimeout = 5 * time.Second

// Video is the metadata recorded for one uploaded file. Immutable after
// registration.
type Video struct {
	ID           string
	SourcePath   string
	Duration     float64
	OriginalName string
	SizeBytes    int64
	UploadedAt   time.Time
}

// Registry holds uploaded video metadata.
type Registry struct {
	mu        sync.RWMutex
	videos    map[string]Video
	order     []string // registration order, oldest first, for eviction
	maxCached int

	db *sql.DB
}

// New opens (or creates) the registry database at dbPath and returns a
// Registry whose in-memory map holds at most maxCached entries. maxCached
// <= 0 disables eviction.
func New(ctx context.Context, dbPath string, maxCached int) (*Registry, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close registry database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}

	r := &Registry{
		videos:    make(map[string]Video),
		maxCached: maxCached,
		db:        db,
	}

	if err := r.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close registry database after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize registry schema: %w", err)
	}

	return r, nil
}

func (r *Registry) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		duration REAL NOT NULL,
		original_name TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		uploaded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_videos_uploaded_at ON videos(uploaded_at);
	`

	initCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(initCtx, schema)
	return err
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// NewVideoID generates a fresh video id: unix seconds followed by a uuid
// with the dashes stripped. Sortable by upload time and unguessable enough
// for a path component.
func NewVideoID() string {
	return fmt.Sprintf("%d%s",
		time.Now().Unix(),
		strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Register records a new video. The caller assigns the id (NewVideoID) so
// the uploaded file can be stored under the id before registration. A zero
// UploadedAt is filled in with the current time.
func (r *Registry) Register(ctx context.Context, video Video) error {
	if video.ID == "" {
		return errors.New("video id must not be empty")
	}
	if video.UploadedAt.IsZero() {
		video.UploadedAt = time.Now()
	}

	execCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(execCtx,
		`INSERT INTO videos (id, source_path, duration, original_name, size_bytes, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		video.ID, video.SourcePath, video.Duration, video.OriginalName, video.SizeBytes, video.UploadedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to persist video %s: %w", video.ID, err)
	}

	r.mu.Lock()
	r.videos[video.ID] = video
	r.order = append(r.order, video.ID)
	r.evictLocked()
	cached := len(r.videos)
	r.mu.Unlock()

	metrics.RegistryCachedVideos.Set(float64(cached))
	return nil
}

// evictLocked drops the oldest in-memory entries above the cache bound.
// The SQLite row stays, so Get can still recover the metadata.
func (r *Registry) evictLocked() {
	if r.maxCached <= 0 {
		return
	}
	for len(r.order) > r.maxCached {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.videos, oldest)
		logging.Debug("Evicted video %s from in-memory registry cache", oldest)
	}
}

// Get returns the metadata for id, falling back to the database when the
// in-memory map misses (process restart or cache eviction). A database hit
// is re-cached in memory.
func (r *Registry) Get(ctx context.Context, id string) (Video, error) {
	r.mu.RLock()
	video, ok := r.videos[id]
	r.mu.RUnlock()
	if ok {
		return video, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var uploadedAt int64
	row := r.db.QueryRowContext(queryCtx,
		`SELECT id, source_path, duration, original_name, size_bytes, uploaded_at
		 FROM videos WHERE id = ?`, id)
	err := row.Scan(&video.ID, &video.SourcePath, &video.Duration, &video.OriginalName, &video.SizeBytes, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	if err != nil {
		return Video{}, fmt.Errorf("failed to load video %s: %w", id, err)
	}
	video.UploadedAt = time.Unix(uploadedAt, 0)

	logging.Debug("Video %s restored to in-memory registry from database", id)

	r.mu.Lock()
	if _, exists := r.videos[id]; !exists {
		r.videos[id] = video
		r.order = append(r.order, id)
		r.evictLocked()
	}
	cached := len(r.videos)
	r.mu.Unlock()

	metrics.RegistryCachedVideos.Set(float64(cached))
	return video, nil
}

// Count returns the number of videos currently held in memory.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.videos)
}
