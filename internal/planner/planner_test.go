package planner

import (
	"errors"
	"math"
	"testing"
)

func TestPlanBasic(t *testing.T) {
	segments, err := Plan(42, 15, 3)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	expected := []Segment{
		{Index: 1, Start: 0, Duration: 15},
		{Index: 2, Start: 15, Duration: 15},
		{Index: 3, Start: 30, Duration: 12},
	}

	if len(segments) != len(expected) {
		t.Fatalf("Plan() returned %d segments, want %d", len(segments), len(expected))
	}

	for i, seg := range segments {
		if seg != expected[i] {
			t.Errorf("segment %d = %+v, want %+v", i, seg, expected[i])
		}
	}
}

func TestPlanShortVideoKeepsOnlySegment(t *testing.T) {
	// A 5s video with 15s max length yields exactly one segment covering
	// the whole video, even though 5s is below the usual minimum.
	segments, err := Plan(5, 15, 10)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Plan() returned %d segments, want 1", len(segments))
	}

	if segments[0].Start != 0 || segments[0].Duration != 5 {
		t.Errorf("segment = %+v, want start=0 duration=5", segments[0])
	}
}

func TestPlanTailAlwaysKept(t *testing.T) {
	// 31s video, 15s segments, 3s minimum: the 1s tail is below the
	// minimum but must still be present.
	segments, err := Plan(31, 15, 3)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Plan() returned %d segments, want 3", len(segments))
	}

	last := segments[len(segments)-1]
	if last.Start != 30 || last.Duration != 1 {
		t.Errorf("tail segment = %+v, want start=30 duration=1", last)
	}
}

func TestPlanInvalidInputs(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		maxLen   float64
	}{
		{"ZeroDuration", 0, 15},
		{"NegativeDuration", -1, 15},
		{"ZeroMaxLen", 42, 0},
		{"NegativeMaxLen", 42, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.duration, tt.maxLen, 3)
			if !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("Plan(%v, %v) error = %v, want ErrInvalidPlan", tt.duration, tt.maxLen, err)
			}
		})
	}
}

func TestPlanPartitionProperty(t *testing.T) {
	// Segment durations must sum to the source duration with no gaps or
	// overlaps, across a spread of durations and lengths.
	tests := []struct {
		duration float64
		maxLen   float64
	}{
		{42, 15},
		{5, 15},
		{60, 60},
		{61, 60},
		{0.5, 15},
		{119.97, 15},
		{3600, 7.3},
	}

	for _, tt := range tests {
		segments, err := Plan(tt.duration, tt.maxLen, 0)
		if err != nil {
			t.Fatalf("Plan(%v, %v) error = %v", tt.duration, tt.maxLen, err)
		}

		var sum float64
		cursor := 0.0
		for i, seg := range segments {
			if seg.Index != i+1 {
				t.Errorf("Plan(%v, %v): segment %d has index %d, want %d", tt.duration, tt.maxLen, i, seg.Index, i+1)
			}
			if math.Abs(seg.Start-cursor) > Epsilon*10 {
				t.Errorf("Plan(%v, %v): segment %d starts at %v, cursor at %v", tt.duration, tt.maxLen, i, seg.Start, cursor)
			}
			if seg.Duration <= 0 || seg.Duration > tt.maxLen+Epsilon {
				t.Errorf("Plan(%v, %v): segment %d duration %v out of (0, %v]", tt.duration, tt.maxLen, i, seg.Duration, tt.maxLen)
			}
			cursor = seg.End()
			sum += seg.Duration
		}

		if math.Abs(sum-tt.duration) > 1e-6 {
			t.Errorf("Plan(%v, %v): durations sum to %v, want %v", tt.duration, tt.maxLen, sum, tt.duration)
		}
	}
}

func TestPlanExactMultiple(t *testing.T) {
	segments, err := Plan(45, 15, 3)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Plan(45, 15) returned %d segments, want 3", len(segments))
	}

	for _, seg := range segments {
		if seg.Duration != 15 {
			t.Errorf("segment %d duration = %v, want 15", seg.Index, seg.Duration)
		}
	}
}
