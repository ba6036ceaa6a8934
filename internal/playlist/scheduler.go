/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"time"

	"github.com/citysigns/ledpanel/internal/events"
	"github.com/citysigns/ledpanel/internal/models"
	"github.com/citysigns/ledpanel/internal/telemetry"
)

// Start brings up the display scheduler for this location. Before the loop
// begins, every on-disk video is re-measured so stale cached durations do not
// survive into the run; corrections are persisted and broadcast. Starting an
// empty playlist fails, starting a running scheduler fails.
func (l *Location) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyRunning
	}
	if len(l.items) == 0 {
		return ErrEmptyPlaylist
	}

	if changed := l.remeasureVideosLocked(ctx); changed > 0 {
		if err := l.persistLocked(); err != nil {
			return err
		}
		l.broadcastContentLocked(events.ActionDurationFix)
	}

	l.cursor = 0
	l.running = true
	l.stop = make(chan struct{})
	go l.run(l.stop)

	telemetry.SchedulerRunning.WithLabelValues(l.id).Set(1)
	l.logger.Info().Int("items", len(l.items)).Msg("scheduler started")
	return nil
}

// Stop shuts the scheduler down. The loop may be mid-sleep; closing the stop
// channel wakes it immediately.
func (l *Location) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return ErrAlreadyStopped
	}
	l.stopLocked()
	return nil
}

// stopLocked tears the scheduler down under the lock. Also called by Clear.
func (l *Location) stopLocked() {
	close(l.stop)
	l.stop = nil
	l.running = false

	telemetry.SchedulerRunning.WithLabelValues(l.id).Set(0)
	l.logger.Info().Msg("scheduler stopped")
	l.bus.Publish(events.Event{
		Type:     events.EventDisplayStatus,
		Location: l.id,
		Status:   events.StatusStopped,
	})
}

// Running reports whether the scheduler loop is active.
func (l *Location) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// CurrentItem returns the item now on screen, or nil when nothing plays.
// The cursor always points one past the item being displayed, so the answer
// is the previous active item, wrapping to the end of the active subsequence
// when the cursor sits at the start.
func (l *Location) CurrentItem() *models.ContentItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentItemLocked()
}

func (l *Location) currentItemLocked() *models.ContentItem {
	if !l.running {
		return nil
	}
	active := l.activeLocked()
	if len(active) == 0 {
		return nil
	}

	idx := l.cursor - 1
	if idx < 0 {
		idx = len(active) - 1
	}
	if idx >= len(active) {
		idx = len(active) - 1
	}
	item := active[idx]
	return &item
}

// run is the scheduler loop. Each pass takes the lock just long enough to
// pick the next playable item and advance the cursor, then sleeps for the
// item's duration outside the lock so mutations and other locations are
// never blocked by a display interval.
func (l *Location) run(stop chan struct{}) {
	for {
		sleep, ok := l.step(stop)
		if !ok {
			return
		}

		if sleep == 0 {
			// Nothing playable right now; idle briefly and re-check.
			select {
			case <-stop:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		timer := time.NewTimer(sleep)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// step puts the next playable item on screen under the lock and returns how
// long to display it. A zero duration with ok true means nothing was
// playable this pass. ok is false when this goroutine no longer owns the
// scheduler and must exit.
func (l *Location) step(stop chan struct{}) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A concurrent Stop (or Clear, or a replacement Start) invalidates this
	// loop; the stop channel identity is the ownership check.
	if !l.running || l.stop != stop {
		return 0, false
	}

	active := l.activeLocked()
	if len(active) == 0 {
		return 0, true
	}
	if l.cursor >= len(active) {
		l.cursor = 0
	}

	// Items whose backing file vanished are skipped in place, with no
	// broadcast and no sleep. At most one full rotation is scanned, so a
	// wiped media directory cannot spin the loop.
	for tries := 0; tries < len(active); tries++ {
		item := active[l.cursor]
		l.cursor = (l.cursor + 1) % len(active)

		if !l.files.Exists(l.id, item.Filename) {
			l.logger.Warn().Str("filename", item.Filename).Msg("media file missing, skipping")
			telemetry.SkipsTotal.WithLabelValues(l.id).Inc()
			continue
		}

		duration := item.DurationSeconds
		if item.Kind == models.KindVideo {
			// Videos are re-measured on every playthrough so a replaced file
			// plays for its real length; the cached value is the fallback.
			measured := l.resolver.Resolve(context.Background(), l.files.Path(l.id, item.Filename), models.KindVideo)
			if measured > 0 {
				duration = measured
			}
		}
		if duration < l.minSeconds {
			duration = l.minSeconds
		}

		display := item
		display.DurationSeconds = duration
		l.bus.Publish(events.Event{
			Type:     events.EventDisplayStatus,
			Location: l.id,
			Status:   events.StatusPlaying,
			Item:     &display,
		})
		telemetry.PlaysTotal.WithLabelValues(l.id, string(item.Kind)).Inc()
		l.logger.Debug().Str("filename", item.Filename).Int("duration", duration).Msg("now playing")

		return time.Duration(duration) * time.Second, true
	}

	return 0, true
}
