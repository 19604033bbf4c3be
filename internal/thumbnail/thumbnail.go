// Package thumbnail extracts a poster frame for each generated clip.
//
// A single frame is piped out of ffmpeg as PNG, resized, and written next
// to the clip as JPEG. Thumbnails are a best-effort side product: a failure
// here never fails the clip that produced it.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"

	_ "image/png" // ffmpeg pipe output decode

	"github.com/disintegration/imaging"

	"video-clipper/internal/logging"
)

const (
	// maxWidth and maxHeight bound the poster frame dimensions.
	maxWidth  = 480
	maxHeight = 480

	jpegQuality = 80
)

// Generator extracts poster frames with ffmpeg.
type Generator struct {
	ffmpegPath string
}

// New returns a Generator using the given ffmpeg binary.
func New(ffmpegPath string) *Generator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Generator{ffmpegPath: ffmpegPath}
}

// FrameTime picks the capture offset for a clip: 0.2s in, or 2% of the
// clip for very short clips, to avoid black lead-in frames.
func FrameTime(clipDuration float64) float64 {
	t := clipDuration * 0.02
	if t > 0.2 {
		t = 0.2
	}
	return t
}

// Generate extracts one frame from clipPath at the given offset and writes
// a JPEG thumbnail to thumbPath.
func (g *Generator) Generate(ctx context.Context, clipPath, thumbPath string, offset float64) error {
	cmd := exec.CommandContext(ctx, g.ffmpegPath,
		"-ss", strconv.FormatFloat(offset, 'f', -1, 64),
		"-i", clipPath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w: %s", err, lastLine(&stderr))
	}

	if stdout.Len() == 0 {
		return fmt.Errorf("ffmpeg produced no frame for %s", clipPath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := os.WriteFile(thumbPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail %s: %w", thumbPath, err)
	}

	logging.Debug("Thumbnail written: %s (%d bytes, frame at %.2fs)", thumbPath, buf.Len(), offset)
	return nil
}

func lastLine(buf *bytes.Buffer) string {
	data := bytes.TrimSpace(buf.Bytes())
	if len(data) == 0 {
		return "(no stderr output)"
	}
	if idx := bytes.LastIndexByte(data, '\n'); idx != -1 {
		return string(bytes.TrimSpace(data[idx+1:]))
	}
	return string(data)
}
