// Package probe determines a video's duration by running ffprobe against
// the container metadata. No decoding takes place, so probing is cheap even
// for large uploads.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"video-clipper/internal/logging"
)

// DefaultTimeout bounds a single probe so a corrupt input cannot hang the
// upload path.
const DefaultTimeout = 10 * time.Second

// Error wraps any failure to determine a duration: a missing binary, a
// non-zero exit, a timeout, or unparseable output.
type Error struct {
	Path  string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe failed for %s: %v", e.Path, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Prober runs ffprobe to read media durations.
type Prober struct {
	binary  string
	timeout time.Duration
}

// New returns a Prober using the given ffprobe binary. A zero timeout
// falls back to DefaultTimeout.
func New(binary string, timeout time.Duration) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{binary: binary, timeout: timeout}
}

// Duration returns the duration of the media file at path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return 0, &Error{Path: path, Cause: fmt.Errorf("timed out after %v", p.timeout)}
		}
		return 0, &Error{Path: path, Cause: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	duration, err := ParseDuration(stdout.String())
	if err != nil {
		return 0, &Error{Path: path, Cause: err}
	}

	logging.Debug("Probed %s: %.2fs (in %v)", path, duration, elapsed)
	return duration, nil
}

// ParseDuration parses ffprobe's duration output, a single float on one
// line. Durations must be positive: a zero or negative value means the
// container metadata is unusable for segment planning.
func ParseDuration(output string) (float64, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return 0, fmt.Errorf("empty duration output")
	}

	duration, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", trimmed, err)
	}

	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", duration)
	}

	return duration, nil
}
