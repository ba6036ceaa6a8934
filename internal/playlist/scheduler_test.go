package playlist

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/citysigns/ledpanel/internal/events"
	"github.com/citysigns/ledpanel/internal/media"
)

// waitEvent reads from the subscription until match returns true.
func waitEvent(t *testing.T, sub events.Subscriber, match func(events.Event) bool) events.Event {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-sub:
			if match(event) {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event")
		}
	}
}

func TestStart_EmptyPlaylist(t *testing.T) {
	loc, _, _ := newTestLocation(t)

	if err := loc.Start(context.Background()); err != ErrEmptyPlaylist {
		t.Fatalf("expected ErrEmptyPlaylist, got %v", err)
	}
	if loc.Running() {
		t.Fatalf("failed start must not leave the scheduler running")
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	loc, _, _ := newTestLocation(t)
	addItems(t, loc, "a.png")

	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loc.Stop()

	if err := loc.Start(context.Background()); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStop_AlreadyStopped(t *testing.T) {
	loc, _, _ := newTestLocation(t)

	if err := loc.Stop(); err != ErrAlreadyStopped {
		t.Fatalf("expected ErrAlreadyStopped, got %v", err)
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	loc, _, bus := newTestLocation(t)
	addItems(t, loc, "a.png", "b.png")

	sub := bus.Subscribe(loc.ID())
	defer bus.Unsubscribe(loc.ID(), sub)

	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !loc.Running() {
		t.Fatalf("scheduler should report running")
	}

	playing := waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventDisplayStatus && e.Status == events.StatusPlaying
	})
	if playing.Item == nil || playing.Item.Filename != "a.png" {
		t.Fatalf("first play should be a.png, got %+v", playing.Item)
	}

	current := loc.CurrentItem()
	if current == nil || current.Filename != "a.png" {
		t.Fatalf("current item should be a.png, got %+v", current)
	}

	if err := loc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventDisplayStatus && e.Status == events.StatusStopped
	})

	if loc.Running() {
		t.Fatalf("scheduler should report stopped")
	}
	if loc.CurrentItem() != nil {
		t.Fatalf("stopped scheduler has no current item")
	}
}

func TestCurrentItem_LookBackWraps(t *testing.T) {
	loc, _, bus := newTestLocation(t)
	addItems(t, loc, "a.png", "b.png", "c.png")

	sub := bus.Subscribe(loc.ID())
	defer bus.Unsubscribe(loc.ID(), sub)

	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loc.Stop()

	waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventDisplayStatus && e.Status == events.StatusPlaying
	})

	// A cursor at the start of the rotation refers back to the last item.
	loc.mu.Lock()
	loc.cursor = 0
	current := loc.currentItemLocked()
	loc.mu.Unlock()

	if current == nil || current.Filename != "c.png" {
		t.Fatalf("look-back at cursor 0 should wrap to c.png, got %+v", current)
	}
}

func TestCurrentItem_SkipsInactive(t *testing.T) {
	loc, _, bus := newTestLocation(t)
	added := addItems(t, loc, "a.png", "b.png")

	sub := bus.Subscribe(loc.ID())
	defer bus.Unsubscribe(loc.ID(), sub)

	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loc.Stop()

	waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventDisplayStatus && e.Status == events.StatusPlaying
	})

	if err := loc.SetActive(added[1].ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	// However the cursor lands, an inactive item is never reported.
	for cursor := 0; cursor <= 2; cursor++ {
		loc.mu.Lock()
		loc.cursor = cursor
		current := loc.currentItemLocked()
		loc.mu.Unlock()

		if current == nil {
			t.Fatalf("cursor %d: expected a current item", cursor)
		}
		if current.Filename == "b.png" {
			t.Fatalf("cursor %d: inactive item reported as current", cursor)
		}
	}
}

func TestScheduler_SkipsMissingFile(t *testing.T) {
	resolver := &fakeResolver{imageDefault: 1, videoFallback: 15, durations: map[string]int{}}
	bus := events.NewBus()
	files := media.NewStore(t.TempDir(), zerolog.Nop())

	reg, err := NewRegistry([]string{"belediye"}, files, resolver, bus, 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	loc, _ := reg.Get("belediye")

	uploads := []Upload{
		{Filename: "gone.png", Data: strings.NewReader("data")},
		{Filename: "stays.png", Data: strings.NewReader("data")},
	}
	if _, err := loc.AddContent(context.Background(), uploads, 0); err != nil {
		t.Fatalf("AddContent: %v", err)
	}

	// Remove the first item's backing file behind the playlist's back.
	if err := files.Remove("belediye", "gone.png"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	sub := bus.Subscribe("belediye")
	defer bus.Unsubscribe("belediye", sub)

	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loc.Stop()

	playing := waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventDisplayStatus && e.Status == events.StatusPlaying
	})
	if playing.Item == nil || playing.Item.Filename != "stays.png" {
		t.Fatalf("scheduler should skip the missing file, got %+v", playing.Item)
	}
}

func TestScheduler_SkipAdvancesWithoutDelay(t *testing.T) {
	resolver := &fakeResolver{imageDefault: 7, videoFallback: 15, durations: map[string]int{}}
	bus := events.NewBus()
	files := media.NewStore(t.TempDir(), zerolog.Nop())

	reg, err := NewRegistry([]string{"belediye"}, files, resolver, bus, 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	loc, _ := reg.Get("belediye")

	uploads := []Upload{
		{Filename: "gone.png", Data: strings.NewReader("data")},
		{Filename: "stays.png", Data: strings.NewReader("data")},
	}
	if _, err := loc.AddContent(context.Background(), uploads, 0); err != nil {
		t.Fatalf("AddContent: %v", err)
	}
	if err := files.Remove("belediye", "gone.png"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	sub := bus.Subscribe("belediye")
	defer bus.Unsubscribe("belediye", sub)

	started := time.Now()
	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loc.Stop()

	playing := waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventDisplayStatus && e.Status == events.StatusPlaying
	})
	// Skipping the missing file must roll straight on to the next item in the
	// same pass, not wait out an idle tick first.
	if elapsed := time.Since(started); elapsed > 800*time.Millisecond {
		t.Fatalf("skip delayed the next item by %v", elapsed)
	}
	if playing.Item == nil || playing.Item.Filename != "stays.png" {
		t.Fatalf("expected stays.png after the skip, got %+v", playing.Item)
	}
}

func TestStart_CorrectsStaleVideoDurations(t *testing.T) {
	loc, resolver, bus := newTestLocation(t)
	resolver.durations["clip.mp4"] = 20
	addItems(t, loc, "clip.mp4")

	// The file now measures differently than when it was uploaded.
	resolver.durations["clip.mp4"] = 33

	sub := bus.Subscribe(loc.ID())
	defer bus.Unsubscribe(loc.ID(), sub)

	if err := loc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loc.Stop()

	fix := waitEvent(t, sub, func(e events.Event) bool {
		return e.Type == events.EventContentUpdated && e.Action == events.ActionDurationFix
	})
	if len(fix.Items) != 1 || fix.Items[0].DurationSeconds != 33 {
		t.Fatalf("expected corrected duration 33, got %+v", fix.Items)
	}
	if loc.Items()[0].DurationSeconds != 33 {
		t.Fatalf("correction not persisted in memory")
	}
}
