package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"video-clipper/internal/config"
	"video-clipper/internal/planner"
	"video-clipper/internal/pool"
	"video-clipper/internal/registry"
)

// stubStore is an in-memory VideoStore for handler tests.
type stubStore struct {
	videos      map[string]registry.Video
	registerErr error
}

func newStubStore() *stubStore {
	return &stubStore{videos: make(map[string]registry.Video)}
}

func (s *stubStore) Register(_ context.Context, video registry.Video) error {
	if s.registerErr != nil {
		return s.registerErr
	}
	s.videos[video.ID] = video
	return nil
}

func (s *stubStore) Get(_ context.Context, id string) (registry.Video, error) {
	v, ok := s.videos[id]
	if !ok {
		return registry.Video{}, registry.ErrNotFound
	}
	return v, nil
}

func (s *stubStore) Count() int { return len(s.videos) }

type stubProber struct {
	duration float64
	err      error
	calls    int
}

func (p *stubProber) Duration(_ context.Context, _ string) (float64, error) {
	p.calls++
	return p.duration, p.err
}

type stubGenerator struct {
	err         error
	calls       int
	gotVideoID  string
	gotSegments []planner.Segment
}

func (g *stubGenerator) Generate(_ context.Context, videoID, _, _ string, segments []planner.Segment) ([]pool.Clip, error) {
	g.calls++
	g.gotVideoID = videoID
	g.gotSegments = segments
	if g.err != nil {
		return nil, g.err
	}

	clips := make([]pool.Clip, 0, len(segments))
	for _, seg := range segments {
		id := fmt.Sprintf("clip-%d", seg.Index)
		clips = append(clips, pool.Clip{
			ID:       id,
			VideoID:  videoID,
			Index:    seg.Index,
			Start:    seg.Start,
			Duration: seg.Duration,
			URL:      fmt.Sprintf("/clips/%s/%s.mp4", videoID, id),
		})
	}
	return clips, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Defaults()
	cfg.Server.UploadDir = t.TempDir()
	cfg.Server.OutputDir = t.TempDir()
	cfg.Performance.MaxConcurrentClips = 4
	cfg.FFmpeg.ThreadsPerClip = 2
	return cfg
}

func TestClipSuccess(t *testing.T) {
	cfg := testConfig(t)
	store := newStubStore()
	store.videos["vid1"] = registry.Video{ID: "vid1", SourcePath: "/uploads/vid1.mp4", Duration: 42}
	gen := &stubGenerator{}

	h := New(cfg, store, &stubProber{}, gen)

	body := strings.NewReader(`{"video_id": "vid1", "max_length": 15}`)
	rec := httptest.NewRecorder()
	h.Clip(rec, httptest.NewRequest(http.MethodPost, "/clip", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp ClipResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.VideoID != "vid1" {
		t.Errorf("video_id = %q, want vid1", resp.VideoID)
	}
	if len(resp.Clips) != 3 {
		t.Fatalf("got %d clips, want 3", len(resp.Clips))
	}

	wantDurations := []float64{15, 15, 12}
	for i, c := range resp.Clips {
		if c.Index != i+1 {
			t.Errorf("clips[%d].index = %d, want %d", i, c.Index, i+1)
		}
		if c.Duration != wantDurations[i] {
			t.Errorf("clips[%d].duration = %f, want %f", i, c.Duration, wantDurations[i])
		}
		wantURL := fmt.Sprintf("/clips/vid1/clip-%d.mp4", i+1)
		if c.URL != wantURL {
			t.Errorf("clips[%d].url = %q, want %q", i, c.URL, wantURL)
		}
	}
}

func TestClipUnknownVideo(t *testing.T) {
	cfg := testConfig(t)
	gen := &stubGenerator{}
	h := New(cfg, newStubStore(), &stubProber{}, gen)

	body := strings.NewReader(`{"video_id": "nope"}`)
	rec := httptest.NewRecorder()
	h.Clip(rec, httptest.NewRequest(http.MethodPost, "/clip", body))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if gen.calls != 0 {
		t.Errorf("generator invoked %d times for unknown video, want 0", gen.calls)
	}
}

func TestClipInvalidJSON(t *testing.T) {
	h := New(testConfig(t), newStubStore(), &stubProber{}, &stubGenerator{})

	rec := httptest.NewRecorder()
	h.Clip(rec, httptest.NewRequest(http.MethodPost, "/clip", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClipMissingVideoID(t *testing.T) {
	h := New(testConfig(t), newStubStore(), &stubProber{}, &stubGenerator{})

	rec := httptest.NewRecorder()
	h.Clip(rec, httptest.NewRequest(http.MethodPost, "/clip", strings.NewReader(`{"max_length": 10}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestClipDefaultMaxLength(t *testing.T) {
	cfg := testConfig(t)
	store := newStubStore()
	store.videos["vid1"] = registry.Video{ID: "vid1", SourcePath: "/uploads/vid1.mp4", Duration: 30}
	gen := &stubGenerator{}
	h := New(cfg, store, &stubProber{}, gen)

	rec := httptest.NewRecorder()
	h.Clip(rec, httptest.NewRequest(http.MethodPost, "/clip", strings.NewReader(`{"video_id": "vid1"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// 30s at the default 15s max length plans two segments.
	if len(gen.gotSegments) != 2 {
		t.Errorf("planned %d segments, want 2", len(gen.gotSegments))
	}
}

func TestClipGenerateFailure(t *testing.T) {
	cfg := testConfig(t)
	store := newStubStore()
	store.videos["vid1"] = registry.Video{ID: "vid1", SourcePath: "/uploads/vid1.mp4", Duration: 42}
	gen := &stubGenerator{err: &pool.EncodeError{SegmentIndex: 2, Cause: fmt.Errorf("exit status 1")}}
	h := New(cfg, store, &stubProber{}, gen)

	rec := httptest.NewRecorder()
	h.Clip(rec, httptest.NewRequest(http.MethodPost, "/clip", strings.NewReader(`{"video_id": "vid1"}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["error"] == "" {
		t.Error("error field missing from failure response")
	}
}

func TestGetConfig(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg, newStubStore(), &stubProber{}, &stubGenerator{})

	rec := httptest.NewRecorder()
	h.GetConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.MaxConcurrentClips != 4 {
		t.Errorf("max_concurrent_clips = %d, want 4", resp.MaxConcurrentClips)
	}
	if resp.MaxConcurrentVideos != 2 {
		t.Errorf("max_concurrent_videos = %d, want 2", resp.MaxConcurrentVideos)
	}
	if resp.MaxFileSize != cfg.Server.MaxFileSizeBytes {
		t.Errorf("max_file_size = %d, want %d", resp.MaxFileSize, cfg.Server.MaxFileSizeBytes)
	}
	if resp.SystemInfo.CPUs < 1 {
		t.Errorf("system_info.cpus = %d, want >= 1", resp.SystemInfo.CPUs)
	}
}

func TestHealthCheck(t *testing.T) {
	h := New(testConfig(t), newStubStore(), &stubProber{}, &stubGenerator{})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
}

func TestGetVersion(t *testing.T) {
	h := New(testConfig(t), newStubStore(), &stubProber{}, &stubGenerator{})

	rec := httptest.NewRecorder()
	h.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "version") {
		t.Error("version field missing from response")
	}
}

func TestIndex(t *testing.T) {
	h := New(testConfig(t), newStubStore(), &stubProber{}, &stubGenerator{})

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "endpoints") {
		t.Error("endpoints listing missing from response")
	}
}
