// Package planner computes the segment layout for a clip request.
//
// Planning is a pure function of the source duration and the configured
// segment length bounds. It performs no I/O, which keeps the timeline math
// testable independently of ffmpeg.
package planner

import (
	"errors"
	"fmt"
)

// Epsilon is the floating-point tolerance used when deciding whether a
// segment reaches the end of the video.
const Epsilon = 1e-9

// ErrInvalidPlan is returned when the requested plan parameters cannot
// describe a valid timeline partition.
var ErrInvalidPlan = errors.New("invalid segment plan")

// Segment is one planned time interval of the source video. Indexes are
// 1-based and dense.
type Segment struct {
	Index    int
	Start    float64
	Duration float64
}

// End returns the exclusive end time of the segment.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// Plan partitions [0, duration) into consecutive segments of at most maxLen
// seconds. Segments shorter than minLen are skipped, except for the trailing
// remainder: the tail of the video is always kept so no content is silently
// dropped. The cursor advances past skipped intervals, so the returned
// segments are still non-overlapping and in timeline order.
func Plan(duration, maxLen, minLen float64) ([]Segment, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration %.3fs must be positive", ErrInvalidPlan, duration)
	}
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: max segment length %.3fs must be positive", ErrInvalidPlan, maxLen)
	}

	var segments []Segment
	start := 0.0
	index := 1

	for start < duration {
		segLen := maxLen
		if remaining := duration - start; remaining < segLen {
			segLen = remaining
		}

		if segLen >= minLen || start+segLen >= duration-Epsilon {
			segments = append(segments, Segment{
				Index:    index,
				Start:    start,
				Duration: segLen,
			})
			index++
		}
		start += segLen
	}

	return segments, nil
}
