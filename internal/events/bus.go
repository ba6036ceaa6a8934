/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"sync"

	"github.com/citysigns/ledpanel/internal/models"
)

// EventType enumerates event categories.
type EventType string

const (
	EventContentUpdated EventType = "content_updated"
	EventDisplayStatus  EventType = "display_status"
)

// Content list actions carried by EventContentUpdated events.
const (
	ActionUpload       = "upload"
	ActionDelete       = "delete"
	ActionClear        = "clear"
	ActionDuration     = "duration_update"
	ActionDurationFix  = "duration_fix"
	ActionReorder      = "reorder"
	ActionActiveUpdate = "active_update"
	ActionSync         = "sync"
)

// Playback statuses carried by EventDisplayStatus events.
const (
	StatusPlaying = "playing"
	StatusStopped = "stopped"
)

// Event is a playlist mutation or playback state change for one location.
type Event struct {
	Type     EventType            `json:"type"`
	Location string               `json:"location"`
	Action   string               `json:"action,omitempty"`
	Status   string               `json:"status,omitempty"`
	Item     *models.ContentItem  `json:"current_item,omitempty"`
	Items    []models.ContentItem `json:"content_list,omitempty"`
}

// Subscriber receives events for one location.
type Subscriber chan Event

// Bus implements a simple per-location in-process pubsub.
//
// Delivery is fire-and-forget: a subscriber whose channel is full misses the
// event. Disconnected viewers resynchronize through the join replay instead.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]Subscriber)}
}

// Subscribe registers a subscriber for a location's channel.
func (b *Bus) Subscribe(location string) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[location] = append(b.subs[location], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends the event to every live subscriber of its location.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[event.Location]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(location string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[location]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[location] = subs
	close(sub)
}
