package events

import "testing"

func TestBus_PerLocationIsolation(t *testing.T) {
	bus := NewBus()

	belediye := bus.Subscribe("belediye")
	havuzbasi := bus.Subscribe("havuzbasi")
	defer bus.Unsubscribe("belediye", belediye)
	defer bus.Unsubscribe("havuzbasi", havuzbasi)

	bus.Publish(Event{Type: EventContentUpdated, Location: "belediye", Action: ActionUpload})

	select {
	case event := <-belediye:
		if event.Location != "belediye" || event.Action != ActionUpload {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatalf("belediye subscriber should have received the event")
	}

	select {
	case event := <-havuzbasi:
		t.Fatalf("havuzbasi subscriber must not see belediye events: %+v", event)
	default:
	}
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("belediye")
	defer bus.Unsubscribe("belediye", sub)

	// Overfill the channel; Publish must never block.
	for i := 0; i < 2*cap(sub); i++ {
		bus.Publish(Event{Type: EventDisplayStatus, Location: "belediye", Status: StatusPlaying})
	}

	if len(sub) != cap(sub) {
		t.Fatalf("expected a full channel, got %d of %d", len(sub), cap(sub))
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("belediye")
	bus.Unsubscribe("belediye", sub)

	if _, open := <-sub; open {
		t.Fatalf("unsubscribed channel should be closed")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{Type: EventContentUpdated, Location: "belediye"})
}
