/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package media implements duration probing and per-location file storage for
// display content.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/citysigns/ledpanel/internal/models"
)

// Resolver measures how long a media file should stay on screen.
//
// Video durations are probed from the file with a chain of strategies; every
// probe failure is non-fatal and falls through to the next strategy, ending in
// a fixed fallback. Images have no intrinsic duration, so the resolver just
// returns the configured default.
type Resolver struct {
	ffprobeBin    string
	gstBin        string
	imageDefault  int
	videoFallback int
	logger        zerolog.Logger
}

// NewResolver creates a duration resolver.
func NewResolver(ffprobeBin, gstBin string, imageDefault, videoFallback int, logger zerolog.Logger) *Resolver {
	return &Resolver{
		ffprobeBin:    ffprobeBin,
		gstBin:        gstBin,
		imageDefault:  imageDefault,
		videoFallback: videoFallback,
		logger:        logger.With().Str("component", "duration").Logger(),
	}
}

// ImageDefault returns the configured default image display duration.
func (r *Resolver) ImageDefault() int {
	return r.imageDefault
}

// VideoFallback returns the configured last-resort video duration.
func (r *Resolver) VideoFallback() int {
	return r.videoFallback
}

// Resolve returns a positive integer display duration in seconds.
func (r *Resolver) Resolve(ctx context.Context, path string, kind models.MediaKind) int {
	if kind != models.KindVideo {
		return r.imageDefault
	}

	if _, err := os.Stat(path); err != nil {
		r.logger.Error().Err(err).Str("path", path).Msg("cannot open video for probing")
		return r.videoFallback
	}

	if secs, err := r.probeFFprobeFormat(ctx, path); err == nil && secs > 0 {
		return secs
	} else if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("ffprobe container probe failed, trying gst-discoverer")
	}

	if secs, err := r.probeGstDiscoverer(ctx, path); err == nil && secs > 0 {
		return secs
	} else if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("gst-discoverer probe failed, trying frame count")
	}

	if secs, err := r.probeFrameCount(ctx, path); err == nil && secs > 0 {
		return secs
	} else if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("frame count probe failed, using fallback")
	}

	return r.videoFallback
}

// probeFFprobeFormat reads the container duration via ffprobe.
func (r *Resolver) probeFFprobeFormat(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, r.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %f", seconds)
	}
	return int(seconds), nil
}

// gst-discoverer prints durations as "Duration: 0:01:23.456000000" with
// variable fractional precision.
var gstDurationRegex = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)(?:\.(\d+))?`)

// probeGstDiscoverer parses the duration line from gst-discoverer-1.0 output.
func (r *Resolver) probeGstDiscoverer(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, r.gstBin, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("gst-discoverer: %w", err)
	}
	return ParseGstDuration(string(output))
}

// ParseGstDuration extracts whole seconds from gst-discoverer output.
func ParseGstDuration(output string) (int, error) {
	matches := gstDurationRegex.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("no duration line in discoverer output")
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])

	total := hours*3600 + minutes*60 + seconds
	if total <= 0 {
		return 0, fmt.Errorf("discoverer reported non-positive duration")
	}
	return total, nil
}

// probeFrameCount derives the duration from frame count and frame rate of the
// first video stream.
func (r *Resolver) probeFrameCount(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, r.ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,avg_frame_rate",
		"-of", "default=noprint_wrappers=1",
		path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe streams: %w", err)
	}
	return ParseFrameCountOutput(string(output))
}

// ParseFrameCountOutput computes frames / fps from ffprobe stream output of
// the form "avg_frame_rate=30000/1001\nnb_frames=3598".
func ParseFrameCountOutput(output string) (int, error) {
	var frames int64
	var fps float64

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, "nb_frames="); ok {
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err == nil {
				frames = parsed
			}
		}
		if value, ok := strings.CutPrefix(line, "avg_frame_rate="); ok {
			fps = parseFrameRate(value)
		}
	}

	if frames <= 0 || fps <= 0 {
		return 0, fmt.Errorf("no usable frame count (frames=%d fps=%f)", frames, fps)
	}

	seconds := int(float64(frames) / fps)
	if seconds <= 0 {
		return 0, fmt.Errorf("frame math yields non-positive duration")
	}
	return seconds, nil
}

// parseFrameRate handles the "num/den" rational ffprobe emits.
func parseFrameRate(value string) float64 {
	num, den, found := strings.Cut(value, "/")
	if !found {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return parsed
	}

	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
