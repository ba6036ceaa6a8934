/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package hub streams playlist and playback events to display clients over
// WebSocket.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/citysigns/ledpanel/internal/events"
	"github.com/citysigns/ledpanel/internal/playlist"
	"github.com/citysigns/ledpanel/internal/telemetry"
)

var errInvalidJoin = errors.New("first message must be a join with a location")

const pingInterval = 15 * time.Second

// joinTimeout bounds how long a client may sit on a fresh connection without
// declaring its location.
const joinTimeout = 10 * time.Second

// Handler upgrades clients to WebSocket and relays their location's events.
type Handler struct {
	registry *playlist.Registry
	bus      *events.Bus
	logger   zerolog.Logger
}

// NewHandler creates a WebSocket event handler.
func NewHandler(registry *playlist.Registry, bus *events.Bus, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		bus:      bus,
		logger:   logger.With().Str("component", "hub").Logger(),
	}
}

type joinMessage struct {
	Type     string `json:"type"`
	Location string `json:"location"`
}

type pingMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ServeWS handles one display client connection. The first client message
// must be a join naming the location; the handler replies with the current
// content list and playback state, then relays live events until the client
// goes away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	ctx := r.Context()
	clientID := uuid.NewString()

	joinCtx, cancelJoin := context.WithTimeout(ctx, joinTimeout)
	join, err := h.readJoin(joinCtx, conn)
	cancelJoin()
	if err != nil {
		h.logger.Debug().Err(err).Str("client", clientID).Msg("client never joined")
		conn.Close(ws.StatusPolicyViolation, "join required")
		return
	}

	loc, err := h.registry.Get(join.Location)
	if err != nil {
		conn.Close(ws.StatusPolicyViolation, "unknown location")
		return
	}

	telemetry.WebsocketSubscribers.Inc()
	defer telemetry.WebsocketSubscribers.Dec()

	logger := h.logger.With().Str("client", clientID).Str("location", loc.ID()).Logger()
	logger.Debug().Msg("client joined")

	sub := h.bus.Subscribe(loc.ID())
	defer h.bus.Unsubscribe(loc.ID(), sub)

	// Replay current state so a reconnecting display resynchronizes without
	// waiting for the next mutation.
	if err := h.sendSnapshot(ctx, conn, loc); err != nil {
		logger.Debug().Err(err).Msg("snapshot send failed")
		return
	}

	// Drain client frames so pongs and closes are noticed; content beyond the
	// join is ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "server shutting down")
			return

		case <-done:
			logger.Debug().Msg("client disconnected")
			conn.Close(ws.StatusNormalClosure, "client disconnected")
			return

		case <-pingTicker.C:
			if err := h.writeJSON(ctx, conn, pingMessage{Type: "ping", Timestamp: time.Now()}); err != nil {
				logger.Debug().Err(err).Msg("ping failed")
				return
			}

		case event, ok := <-sub:
			if !ok {
				conn.Close(ws.StatusNormalClosure, "subscription ended")
				return
			}
			if err := h.writeJSON(ctx, conn, event); err != nil {
				logger.Debug().Err(err).Msg("event send failed")
				return
			}
		}
	}
}

// readJoin waits for the client's join message.
func (h *Handler) readJoin(ctx context.Context, conn *ws.Conn) (joinMessage, error) {
	var join joinMessage
	_, data, err := conn.Read(ctx)
	if err != nil {
		return join, err
	}
	if err := json.Unmarshal(data, &join); err != nil {
		return join, err
	}
	if join.Type != "join" || join.Location == "" {
		return join, errInvalidJoin
	}
	return join, nil
}

// sendSnapshot replays the content list and the playback state to a freshly
// joined client, in that order.
func (h *Handler) sendSnapshot(ctx context.Context, conn *ws.Conn, loc *playlist.Location) error {
	if err := h.writeJSON(ctx, conn, events.Event{
		Type:     events.EventContentUpdated,
		Location: loc.ID(),
		Action:   events.ActionSync,
		Items:    loc.Items(),
	}); err != nil {
		return err
	}

	status := events.Event{
		Type:     events.EventDisplayStatus,
		Location: loc.ID(),
		Status:   events.StatusStopped,
	}
	if current := loc.CurrentItem(); current != nil {
		status.Status = events.StatusPlaying
		status.Item = current
	}
	return h.writeJSON(ctx, conn, status)
}

func (h *Handler) writeJSON(ctx context.Context, conn *ws.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}
