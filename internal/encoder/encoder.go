// Package encoder builds and runs the ffmpeg invocation for one segment.
//
// Every clip is produced by exactly one encoder subprocess; ffmpeg is never
// linked in-process. The argument layout is config-driven and deterministic
// so that two hosts with the same settings issue the same command line.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"video-clipper/internal/config"
	"video-clipper/internal/logging"
	"video-clipper/internal/planner"
)

// Encoder runs ffmpeg segment-encode jobs.
type Encoder struct {
	cfg     config.FFmpegConfig
	timeout time.Duration
}

// New returns an Encoder for the given ffmpeg settings. timeout bounds one
// encode job; zero means unbounded.
func New(cfg config.FFmpegConfig, timeout time.Duration) *Encoder {
	return &Encoder{cfg: cfg, timeout: timeout}
}

// BuildArgs assembles the ffmpeg argument list for extracting and encoding
// one segment of inputPath into outputPath.
func BuildArgs(cfg config.FFmpegConfig, inputPath, outputPath string, seg planner.Segment) []string {
	args := make([]string, 0, 48)

	// Input seeking is faster: ffmpeg jumps to the keyframe before decode.
	if cfg.UseInputSeeking {
		args = append(args, "-ss", formatSeconds(seg.Start))
	}

	args = append(args, "-thread_queue_size", "512")
	args = append(args, "-i", inputPath)

	if !cfg.UseInputSeeking {
		args = append(args, "-ss", formatSeconds(seg.Start))
	}

	args = append(args, "-t", formatSeconds(seg.Duration))

	args = append(args,
		"-c:v", "libx264",
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		"-profile:v", cfg.Profile,
		"-level", cfg.Level,
		"-threads", strconv.Itoa(cfg.ThreadsPerClip),
	)

	// Buffer settings tuned for speed over quality on large sources.
	args = append(args,
		"-bufsize", "1M",
		"-maxrate", "4M",
		"-g", "30",
		"-keyint_min", "30",
	)

	for _, tune := range cfg.Tune {
		args = append(args, "-tune", tune)
	}

	args = append(args, "-pix_fmt", cfg.PixelFormat)
	args = append(args, "-c:a", cfg.AudioCodec)

	args = append(args, routeAdditionalFlags(cfg.AdditionalFlags)...)

	args = append(args, "-y", outputPath)
	return args
}

// routeAdditionalFlags maps the config's flag shorthand onto ffmpeg
// arguments: "+x" entries are collected into a single -movflags value,
// "fflags=+y" entries into a single -fflags value, "k=v" becomes "-k v",
// and anything else becomes a bare flag.
func routeAdditionalFlags(flags []string) []string {
	var movflags, fflags []string
	var out []string

	for _, flag := range flags {
		switch {
		case strings.HasPrefix(flag, "+"):
			movflags = append(movflags, flag)
		case strings.HasPrefix(flag, "fflags="):
			fflags = append(fflags, strings.TrimPrefix(flag, "fflags="))
		case strings.Contains(flag, "="):
			parts := strings.SplitN(flag, "=", 2)
			out = append(out, "-"+parts[0], parts[1])
		case strings.HasPrefix(flag, "-"):
			out = append(out, flag)
		default:
			out = append(out, "-"+flag)
		}
	}

	var result []string
	if len(movflags) > 0 {
		result = append(result, "-movflags", strings.Join(movflags, "+"))
	}
	if len(fflags) > 0 {
		result = append(result, "-fflags", strings.Join(fflags, "+"))
	}
	return append(result, out...)
}

// EncodeSegment runs one ffmpeg subprocess to produce outputPath from the
// given segment of inputPath. When the configured timeout fires the
// subprocess is killed; it is never left to run unobserved.
func (e *Encoder) EncodeSegment(ctx context.Context, inputPath, outputPath string, seg planner.Segment) error {
	jobCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := BuildArgs(e.cfg, inputPath, outputPath, seg)
	logging.Debug("Encoding segment %d: %s %s", seg.Index, e.cfg.FFmpegPath, strings.Join(args, " "))

	cmd := exec.CommandContext(jobCtx, e.cfg.FFmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("encode timed out after %v (subprocess killed): %w", e.timeout, context.DeadlineExceeded)
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastStderrLine(&stderr))
	}

	logging.Debug("Segment %d encoded in %v", seg.Index, elapsed)
	return nil
}

// lastStderrLine extracts the final non-empty stderr line, which is where
// ffmpeg reports its actual error.
func lastStderrLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "(no stderr output)"
}

// formatSeconds renders a seek or duration value for the ffmpeg command
// line without scientific notation.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
