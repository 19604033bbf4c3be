package thumbnail

import (
	"context"
	"math"
	"testing"
)

func TestFrameTime(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		expected float64
	}{
		{"LongClip", 15, 0.2},
		{"TenSecondClip", 10, 0.2},
		{"ExactBoundary", 10.0, 0.2},
		{"ShortClip", 5, 0.1},
		{"VeryShortClip", 1, 0.02},
		{"ZeroDuration", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrameTime(tt.duration)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("FrameTime(%v) = %v, want %v", tt.duration, got, tt.expected)
			}
		})
	}
}

func TestNewDefaultBinary(t *testing.T) {
	g := New("")
	if g.ffmpegPath != "ffmpeg" {
		t.Errorf("Expected default binary ffmpeg, got %s", g.ffmpegPath)
	}
}

func TestGenerateMissingBinary(t *testing.T) {
	g := New("/nonexistent/ffmpeg-binary")

	err := g.Generate(context.Background(), "/tmp/clip.mp4", "/tmp/clip.jpg", 0.2)
	if err == nil {
		t.Error("Generate() with missing binary did not return an error")
	}
}
