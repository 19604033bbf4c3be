package pool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"video-clipper/internal/planner"
)

// stubEncoder records dispatch behavior instead of running ffmpeg.
type stubEncoder struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	started     map[int]bool
	finished    map[int]bool
	delays      map[int]time.Duration
	failures    map[int]error
	writeFiles  bool
}

func newStubEncoder() *stubEncoder {
	return &stubEncoder{
		started:  make(map[int]bool),
		finished: make(map[int]bool),
		delays:   make(map[int]time.Duration),
		failures: make(map[int]error),
	}
}

func (s *stubEncoder) EncodeSegment(ctx context.Context, inputPath, outputPath string, seg planner.Segment) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.started[seg.Index] = true
	delay := s.delays[seg.Index]
	fail := s.failures[seg.Index]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.inFlight--
	s.finished[seg.Index] = true
	s.mu.Unlock()

	if fail != nil {
		return fail
	}
	if s.writeFiles {
		return os.WriteFile(outputPath, []byte("clip"), 0o644)
	}
	return nil
}

type stubThumbnailer struct {
	mu       sync.Mutex
	calls    int
	failures map[string]error
}

func (s *stubThumbnailer) Generate(ctx context.Context, clipPath, thumbPath string, offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err, ok := s.failures[filepath.Base(clipPath)]; ok {
		return err
	}
	return nil
}

func makeSegments(n int, length float64) []planner.Segment {
	segs := make([]planner.Segment, n)
	for i := range segs {
		segs[i] = planner.Segment{Index: i + 1, Start: float64(i) * length, Duration: length}
	}
	return segs
}

func TestGenerateRespectsConcurrencyCap(t *testing.T) {
	enc := newStubEncoder()
	for i := 1; i <= 7; i++ {
		enc.delays[i] = 20 * time.Millisecond
	}

	p := New(enc, nil, 3)
	clips, err := p.Generate(context.Background(), "vid1", "in.mp4", t.TempDir(), makeSegments(7, 15))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(clips) != 7 {
		t.Errorf("got %d clips, want 7", len(clips))
	}
	if enc.maxInFlight > 3 {
		t.Errorf("maxInFlight = %d, exceeds cap 3", enc.maxInFlight)
	}
	if enc.maxInFlight < 3 {
		t.Errorf("maxInFlight = %d, full batch should run in parallel", enc.maxInFlight)
	}
}

func TestGenerateOrdersResultsByIndex(t *testing.T) {
	enc := newStubEncoder()
	// Later segments in a batch finish first.
	enc.delays[1] = 40 * time.Millisecond
	enc.delays[2] = 20 * time.Millisecond
	enc.delays[3] = 5 * time.Millisecond

	p := New(enc, nil, 3)
	clips, err := p.Generate(context.Background(), "vid1", "in.mp4", t.TempDir(), makeSegments(3, 15))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for i, c := range clips {
		if c.Index != i+1 {
			t.Errorf("clips[%d].Index = %d, want %d", i, c.Index, i+1)
		}
	}
}

func TestGenerateStopsAfterFailedBatch(t *testing.T) {
	enc := newStubEncoder()
	enc.failures[3] = errors.New("encoder exploded")
	enc.delays[4] = 10 * time.Millisecond

	p := New(enc, nil, 2)
	_, err := p.Generate(context.Background(), "vid1", "in.mp4", t.TempDir(), makeSegments(6, 15))
	if err == nil {
		t.Fatal("Generate() succeeded, want error")
	}

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("error type = %T, want *EncodeError", err)
	}
	if encErr.SegmentIndex != 3 {
		t.Errorf("SegmentIndex = %d, want 3", encErr.SegmentIndex)
	}

	// The failing job's batch sibling still ran to completion.
	if !enc.finished[4] {
		t.Error("segment 4 (batch sibling of failure) did not finish")
	}
	// Later batches never started.
	for _, idx := range []int{5, 6} {
		if enc.started[idx] {
			t.Errorf("segment %d started after failed batch", idx)
		}
	}
}

func TestGenerateReportsLowestFailedIndex(t *testing.T) {
	enc := newStubEncoder()
	enc.failures[2] = errors.New("first")
	enc.failures[3] = errors.New("second")
	enc.delays[2] = 15 * time.Millisecond // lower index finishes after higher

	p := New(enc, nil, 4)
	_, err := p.Generate(context.Background(), "vid1", "in.mp4", t.TempDir(), makeSegments(4, 15))

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("error type = %T, want *EncodeError", err)
	}
	if encErr.SegmentIndex != 2 {
		t.Errorf("SegmentIndex = %d, want 2", encErr.SegmentIndex)
	}
}

func TestGenerateClipFields(t *testing.T) {
	enc := newStubEncoder()
	enc.writeFiles = true
	outDir := t.TempDir()

	p := New(enc, &stubThumbnailer{}, 2)
	clips, err := p.Generate(context.Background(), "vid42", "in.mp4", outDir, makeSegments(2, 15))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for i, c := range clips {
		wantID := fmt.Sprintf("clip-%d", i+1)
		if c.ID != wantID {
			t.Errorf("clips[%d].ID = %q, want %q", i, c.ID, wantID)
		}
		if c.VideoID != "vid42" {
			t.Errorf("clips[%d].VideoID = %q, want vid42", i, c.VideoID)
		}
		wantURL := fmt.Sprintf("/clips/vid42/clip-%d.mp4", i+1)
		if c.URL != wantURL {
			t.Errorf("clips[%d].URL = %q, want %q", i, c.URL, wantURL)
		}
		wantThumb := fmt.Sprintf("/clips/vid42/clip-%d.jpg", i+1)
		if c.ThumbnailURL != wantThumb {
			t.Errorf("clips[%d].ThumbnailURL = %q, want %q", i, c.ThumbnailURL, wantThumb)
		}
		wantPath := filepath.Join(outDir, "vid42", wantID+".mp4")
		if c.FilePath != wantPath {
			t.Errorf("clips[%d].FilePath = %q, want %q", i, c.FilePath, wantPath)
		}
		if _, err := os.Stat(c.FilePath); err != nil {
			t.Errorf("clip file missing: %v", err)
		}
	}
}

func TestGenerateThumbnailFailureIsNonFatal(t *testing.T) {
	enc := newStubEncoder()
	thumb := &stubThumbnailer{failures: map[string]error{
		"clip-2.mp4": errors.New("no frame"),
	}}

	p := New(enc, thumb, 3)
	clips, err := p.Generate(context.Background(), "vid1", "in.mp4", t.TempDir(), makeSegments(3, 15))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if clips[0].ThumbnailURL == "" {
		t.Error("clips[0].ThumbnailURL empty, want set")
	}
	if clips[1].ThumbnailURL != "" {
		t.Errorf("clips[1].ThumbnailURL = %q, want empty after thumbnail failure", clips[1].ThumbnailURL)
	}
	if clips[2].ThumbnailURL == "" {
		t.Error("clips[2].ThumbnailURL empty, want set")
	}
}

func TestGenerateEmptySegments(t *testing.T) {
	p := New(newStubEncoder(), nil, 2)
	if _, err := p.Generate(context.Background(), "vid1", "in.mp4", t.TempDir(), nil); err == nil {
		t.Error("Generate() with no segments succeeded, want error")
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(newStubEncoder(), nil, 2)
	if _, err := p.Generate(ctx, "vid1", "in.mp4", t.TempDir(), makeSegments(2, 15)); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestNewClampsConcurrency(t *testing.T) {
	p := New(newStubEncoder(), nil, 0)
	if p.maxConcurrent != 1 {
		t.Errorf("maxConcurrent = %d, want 1", p.maxConcurrent)
	}
}
