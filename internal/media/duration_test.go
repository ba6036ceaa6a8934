package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/citysigns/ledpanel/internal/models"
)

func TestParseGstDuration(t *testing.T) {
	cases := []struct {
		output string
		want   int
	}{
		{"Duration: 0:00:42.123000000", 42},
		{"Properties:\n  Duration: 0:01:30.500000000\n  Seekable: yes", 90},
		{"Duration: 1:00:05", 3605},
	}

	for _, tc := range cases {
		got, err := ParseGstDuration(tc.output)
		if err != nil {
			t.Fatalf("%q: %v", tc.output, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.output, tc.want, got)
		}
	}
}

func TestParseGstDuration_Errors(t *testing.T) {
	for _, output := range []string{"", "no duration here", "Duration: 0:00:00.000000000"} {
		if _, err := ParseGstDuration(output); err == nil {
			t.Fatalf("%q: expected an error", output)
		}
	}
}

func TestParseFrameCountOutput(t *testing.T) {
	output := "avg_frame_rate=30000/1001\nnb_frames=3598\n"
	got, err := ParseFrameCountOutput(output)
	if err != nil {
		t.Fatalf("ParseFrameCountOutput: %v", err)
	}
	// 3598 frames at 29.97 fps is just over two minutes.
	if got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
}

func TestParseFrameCountOutput_IntegerRate(t *testing.T) {
	got, err := ParseFrameCountOutput("nb_frames=250\navg_frame_rate=25/1\n")
	if err != nil {
		t.Fatalf("ParseFrameCountOutput: %v", err)
	}
	if got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}

func TestParseFrameCountOutput_Errors(t *testing.T) {
	cases := []string{
		"",
		"nb_frames=N/A\navg_frame_rate=0/0",
		"nb_frames=100",
		"avg_frame_rate=25/1",
	}
	for _, output := range cases {
		if _, err := ParseFrameCountOutput(output); err == nil {
			t.Fatalf("%q: expected an error", output)
		}
	}
}

func TestResolve_ImageIgnoresProbes(t *testing.T) {
	resolver := NewResolver("/nonexistent/ffprobe", "/nonexistent/gst", 7, 15, zerolog.Nop())
	if got := resolver.Resolve(context.Background(), "whatever.png", models.KindImage); got != 7 {
		t.Fatalf("expected image default 7, got %d", got)
	}
}

func TestResolve_MissingFileFallsBack(t *testing.T) {
	resolver := NewResolver("/nonexistent/ffprobe", "/nonexistent/gst", 7, 15, zerolog.Nop())
	if got := resolver.Resolve(context.Background(), "/no/such/clip.mp4", models.KindVideo); got != 15 {
		t.Fatalf("expected fallback 15, got %d", got)
	}
}

func TestResolve_AllProbesFailFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not a real video"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	resolver := NewResolver("/nonexistent/ffprobe", "/nonexistent/gst", 7, 15, zerolog.Nop())
	if got := resolver.Resolve(context.Background(), path, models.KindVideo); got != 15 {
		t.Fatalf("expected fallback 15, got %d", got)
	}
}
