// Package pool runs segment encode jobs in parallel batches. A batch never
// exceeds the configured concurrency cap, and every job in a batch finishes
// before the next batch starts. A failed job stops later batches, but its
// batch siblings always run to completion so no orphaned ffmpeg process is
// left writing into the output directory.
package pool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"video-clipper/internal/logging"
	"video-clipper/internal/metrics"
	"video-clipper/internal/planner"
	"video-clipper/internal/thumbnail"
)

// Clip describes one generated clip on disk and its public URLs.
type Clip struct {
	ID           string  `json:"id"`
	VideoID      string  `json:"video_id"`
	Index        int     `json:"index"`
	Start        float64 `json:"start_time"`
	Duration     float64 `json:"duration"`
	FilePath     string  `json:"-"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// EncodeError reports the first segment whose encode failed.
type EncodeError struct {
	SegmentIndex int
	Cause        error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding segment %d failed: %v", e.SegmentIndex, e.Cause)
}

func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// SegmentEncoder produces one encoded clip file for a segment of the source.
type SegmentEncoder interface {
	EncodeSegment(ctx context.Context, inputPath, outputPath string, seg planner.Segment) error
}

// Thumbnailer extracts a preview image from an encoded clip.
type Thumbnailer interface {
	Generate(ctx context.Context, clipPath, thumbPath string, offset float64) error
}

// Pool dispatches encode jobs in fixed-size batches.
type Pool struct {
	encoder       SegmentEncoder
	thumbnailer   Thumbnailer
	maxConcurrent int
}

// New returns a Pool that runs at most maxConcurrent encodes at a time.
// A maxConcurrent below 1 is treated as 1.
func New(encoder SegmentEncoder, thumbnailer Thumbnailer, maxConcurrent int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{
		encoder:       encoder,
		thumbnailer:   thumbnailer,
		maxConcurrent: maxConcurrent,
	}
}

type jobResult struct {
	clip Clip
	err  error
}

// Generate encodes every planned segment of sourcePath into
// outputDir/videoID/clip-{index}.mp4 and returns the clips ordered by
// segment index. If any encode fails, the first failure (by segment index)
// is returned as an *EncodeError and no later batch is started.
func (p *Pool) Generate(ctx context.Context, videoID, sourcePath, outputDir string, segments []planner.Segment) ([]Clip, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to encode for video %s", videoID)
	}

	clipDir := filepath.Join(outputDir, videoID)
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating clip directory: %w", err)
	}

	logging.Info("Generating %d clips for video %s (%d at a time)", len(segments), videoID, p.maxConcurrent)

	clips := make([]Clip, 0, len(segments))

	for batchStart := 0; batchStart < len(segments); batchStart += p.maxConcurrent {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batchEnd := batchStart + p.maxConcurrent
		if batchEnd > len(segments) {
			batchEnd = len(segments)
		}
		batch := segments[batchStart:batchEnd]

		metrics.EncodeBatchesTotal.Inc()
		logging.Debug("Dispatching batch of %d clips for video %s (segments %d-%d)",
			len(batch), videoID, batch[0].Index, batch[len(batch)-1].Index)

		results := make(chan jobResult, len(batch))
		for _, seg := range batch {
			go p.runJob(ctx, videoID, sourcePath, clipDir, seg, results)
		}

		// Every sibling is awaited even after a failure so the batch
		// finishes as a unit.
		var batchErr *EncodeError
		for range batch {
			res := <-results
			if res.err != nil {
				if batchErr == nil || res.clip.Index < batchErr.SegmentIndex {
					batchErr = &EncodeError{SegmentIndex: res.clip.Index, Cause: res.err}
				}
				continue
			}
			clips = append(clips, res.clip)
		}

		if batchErr != nil {
			logging.Error("Batch failed for video %s: %v", videoID, batchErr)
			return nil, batchErr
		}
	}

	sort.Slice(clips, func(i, j int) bool { return clips[i].Index < clips[j].Index })

	logging.Info("Generated %d clips for video %s", len(clips), videoID)
	return clips, nil
}

func (p *Pool) runJob(ctx context.Context, videoID, sourcePath, clipDir string, seg planner.Segment, results chan<- jobResult) {
	clipID := fmt.Sprintf("clip-%d", seg.Index)
	clipPath := filepath.Join(clipDir, clipID+".mp4")

	metrics.EncodeJobsInProgress.Inc()
	start := time.Now()

	err := p.encoder.EncodeSegment(ctx, sourcePath, clipPath, seg)

	elapsed := time.Since(start)
	metrics.EncodeJobsInProgress.Dec()
	metrics.EncodeJobDuration.Observe(elapsed.Seconds())

	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.EncodeJobsTotal.WithLabelValues(status).Inc()
		results <- jobResult{clip: Clip{Index: seg.Index}, err: err}
		return
	}

	metrics.EncodeJobsTotal.WithLabelValues("success").Inc()
	metrics.ClipsGeneratedTotal.Inc()
	logging.Debug("Encoded segment %d of video %s in %.1fs", seg.Index, videoID, elapsed.Seconds())

	clip := Clip{
		ID:       clipID,
		VideoID:  videoID,
		Index:    seg.Index,
		Start:    seg.Start,
		Duration: seg.Duration,
		FilePath: clipPath,
		URL:      fmt.Sprintf("/clips/%s/%s.mp4", videoID, clipID),
	}

	if p.thumbnailer != nil {
		thumbPath := filepath.Join(clipDir, clipID+".jpg")
		offset := thumbnail.FrameTime(seg.Duration)
		if terr := p.thumbnailer.Generate(ctx, clipPath, thumbPath, offset); terr != nil {
			// A clip without a preview image is still usable.
			metrics.ThumbnailsTotal.WithLabelValues("error").Inc()
			logging.Warn("Thumbnail for segment %d of video %s failed: %v", seg.Index, videoID, terr)
		} else {
			metrics.ThumbnailsTotal.WithLabelValues("success").Inc()
			clip.ThumbnailURL = fmt.Sprintf("/clips/%s/%s.jpg", videoID, clipID)
		}
	}

	results <- jobResult{clip: clip}
}
