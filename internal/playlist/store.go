/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist holds the per-location playlist state machine: the content
// store, its mutation API, and the display scheduler.
package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/citysigns/ledpanel/internal/events"
	"github.com/citysigns/ledpanel/internal/models"
	"github.com/citysigns/ledpanel/internal/telemetry"
)

// contentListFile is the per-location persisted playlist filename.
const contentListFile = "content_list.json"

// DurationResolver measures display durations for media files.
type DurationResolver interface {
	Resolve(ctx context.Context, path string, kind models.MediaKind) int
	ImageDefault() int
	VideoFallback() int
}

// MediaFiles abstracts the per-location media file store.
type MediaFiles interface {
	Dir(location string) string
	Path(location, filename string) string
	Exists(location, filename string) bool
	Save(location, filename string, src io.Reader) (string, error)
	Remove(location, filename string) error
}

// Registry maps location ids to their playlists. It is built once at startup
// from the fixed location set and never changes afterwards.
type Registry struct {
	order     []string
	locations map[string]*Location
}

// NewRegistry creates one Location per configured id, loading each persisted
// content list. A missing content list means an empty playlist, not an error.
func NewRegistry(ids []string, files MediaFiles, resolver DurationResolver, bus *events.Bus, minDisplaySeconds int, logger zerolog.Logger) (*Registry, error) {
	reg := &Registry{
		order:     append([]string(nil), ids...),
		locations: make(map[string]*Location, len(ids)),
	}

	for _, id := range ids {
		loc := &Location{
			id:         id,
			listPath:   filepath.Join(files.Dir(id), contentListFile),
			files:      files,
			resolver:   resolver,
			bus:        bus,
			minSeconds: minDisplaySeconds,
			logger:     logger.With().Str("location", id).Logger(),
		}
		if err := loc.load(); err != nil {
			return nil, fmt.Errorf("load playlist for %s: %w", id, err)
		}
		reg.locations[id] = loc
	}

	return reg, nil
}

// Get returns the playlist for a location id.
func (r *Registry) Get(id string) (*Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return nil, ErrUnknownLocation
	}
	return loc, nil
}

// IDs returns the registered location ids in directory order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// StopAll stops every running scheduler, for process shutdown.
func (r *Registry) StopAll() {
	for _, id := range r.order {
		if err := r.locations[id].Stop(); err == nil {
			r.locations[id].logger.Info().Msg("scheduler stopped for shutdown")
		}
	}
}

// Location is the single source of truth for one display site: its ordered
// content items, the scheduler cursor, and the running flag. All access is
// serialized by the per-location mutex; locations never share a lock.
type Location struct {
	id         string
	listPath   string
	files      MediaFiles
	resolver   DurationResolver
	bus        *events.Bus
	minSeconds int
	logger     zerolog.Logger

	mu      sync.Mutex
	items   []models.ContentItem
	cursor  int
	running bool
	stop    chan struct{} // scheduler ownership token; nil while stopped
	lastID  int64
}

// ID returns the location id.
func (l *Location) ID() string {
	return l.id
}

// Items returns a snapshot of the content list.
func (l *Location) Items() []models.ContentItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ContentItem(nil), l.items...)
}

// Upload is one file admitted into the playlist.
type Upload struct {
	Filename string
	Data     io.Reader
}

// AddContent stores the uploaded files and appends them to the playlist.
// Files with unsupported extensions are skipped; if nothing is admitted the
// call fails with ErrInvalidInput. explicitDuration overrides the measured or
// default duration when positive.
func (l *Location) AddContent(ctx context.Context, uploads []Upload, explicitDuration int) ([]models.ContentItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	admitted := make([]models.ContentItem, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Filename == "" {
			continue
		}

		kind, err := models.KindForFilename(upload.Filename)
		if err != nil {
			l.logger.Warn().Str("filename", upload.Filename).Msg("rejected unsupported media format")
			continue
		}

		path, err := l.files.Save(l.id, upload.Filename, upload.Data)
		if err != nil {
			l.logger.Error().Err(err).Str("filename", upload.Filename).Msg("failed to store upload")
			continue
		}

		duration := explicitDuration
		if duration <= 0 {
			if kind == models.KindVideo {
				duration = l.resolver.Resolve(ctx, path, kind)
			} else {
				duration = l.resolver.ImageDefault()
			}
		}

		item := models.ContentItem{
			ID:              l.nextID(int64(len(admitted))),
			Filename:        filepath.Base(upload.Filename),
			Kind:            kind,
			OrderIndex:      len(l.items),
			DurationSeconds: duration,
			IsActive:        true,
		}
		l.items = append(l.items, item)
		admitted = append(admitted, item)

		l.logger.Info().Str("filename", item.Filename).Str("kind", string(kind)).Int("duration", duration).Msg("content added")
	}

	if len(admitted) == 0 {
		return nil, ErrInvalidInput
	}

	if err := l.persistLocked(); err != nil {
		// Roll the admitted items back out so memory matches the list on disk.
		l.items = l.items[:len(l.items)-len(admitted)]
		for _, item := range admitted {
			if rmErr := l.files.Remove(l.id, item.Filename); rmErr != nil {
				l.logger.Warn().Err(rmErr).Str("filename", item.Filename).Msg("rollback file removal failed")
			}
		}
		return nil, err
	}
	l.broadcastContentLocked(events.ActionUpload)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionUpload).Inc()
	return admitted, nil
}

// Delete removes an item and its backing file, then repacks the order
// indexes of the remaining items.
func (l *Location) Delete(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOfLocked(id)
	if idx < 0 {
		return ErrNotFound
	}

	item := l.items[idx]
	if err := l.files.Remove(l.id, item.Filename); err != nil {
		l.logger.Warn().Err(err).Str("filename", item.Filename).Msg("failed to remove backing file")
	}

	l.items = append(l.items[:idx], l.items[idx+1:]...)
	l.repackLocked()

	if err := l.persistLocked(); err != nil {
		return err
	}
	l.logger.Info().Str("filename", item.Filename).Msg("content deleted")
	l.broadcastContentLocked(events.ActionDelete)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionDelete).Inc()
	return nil
}

// Clear stops a running scheduler, deletes every backing file, and empties
// the playlist.
func (l *Location) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.stopLocked()
	}

	for _, item := range l.items {
		if err := l.files.Remove(l.id, item.Filename); err != nil {
			l.logger.Warn().Err(err).Str("filename", item.Filename).Msg("failed to remove backing file")
		}
	}
	l.items = l.items[:0]

	if err := l.persistLocked(); err != nil {
		return err
	}
	l.logger.Info().Msg("all content cleared")
	l.broadcastContentLocked(events.ActionClear)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionClear).Inc()
	return nil
}

// SetDuration overwrites an item's display duration. No re-measurement
// happens here; FixVideoDurations covers that.
func (l *Location) SetDuration(id int64, seconds int) error {
	if seconds <= 0 {
		return ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOfLocked(id)
	if idx < 0 {
		return ErrNotFound
	}

	l.items[idx].DurationSeconds = seconds
	if err := l.persistLocked(); err != nil {
		return err
	}
	l.logger.Info().Str("filename", l.items[idx].Filename).Int("duration", seconds).Msg("duration updated")
	l.broadcastContentLocked(events.ActionDuration)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionDuration).Inc()
	return nil
}

// SetActive toggles whether the scheduler plays an item. The item keeps its
// order index; the cursor is always interpreted against the active
// subsequence at read time, so no cursor adjustment is needed here.
func (l *Location) SetActive(id int64, active bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOfLocked(id)
	if idx < 0 {
		return ErrNotFound
	}

	l.items[idx].IsActive = active
	if err := l.persistLocked(); err != nil {
		return err
	}
	l.logger.Info().Str("filename", l.items[idx].Filename).Bool("active", active).Msg("active flag updated")
	l.broadcastContentLocked(events.ActionActiveUpdate)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionActiveUpdate).Inc()
	return nil
}

// OrderPair assigns a requested order index to an item id.
type OrderPair struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order"`
}

// Reorder stages the requested order for every known id, sorts by the staged
// order (items not mentioned keep their previous relative position), and
// repacks to dense indexes. Unknown ids are silently ignored.
func (l *Location) Reorder(pairs []OrderPair) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, pair := range pairs {
		if idx := l.indexOfLocked(pair.ID); idx >= 0 {
			l.items[idx].OrderIndex = pair.OrderIndex
		}
	}

	sort.SliceStable(l.items, func(i, j int) bool {
		return l.items[i].OrderIndex < l.items[j].OrderIndex
	})
	l.repackLocked()

	if err := l.persistLocked(); err != nil {
		return err
	}
	l.logger.Info().Msg("content order updated")
	l.broadcastContentLocked(events.ActionReorder)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionReorder).Inc()
	return nil
}

// FixVideoDurations re-measures every video item whose backing file exists
// and overwrites the cached duration. Returns the number of items whose
// duration actually changed; broadcasts once when that count is positive.
func (l *Location) FixVideoDurations(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := l.remeasureVideosLocked(ctx)
	if changed == 0 {
		return 0, nil
	}

	if err := l.persistLocked(); err != nil {
		return 0, err
	}
	l.logger.Info().Int("fixed", changed).Msg("video durations corrected")
	l.broadcastContentLocked(events.ActionDurationFix)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionDurationFix).Inc()
	return changed, nil
}

// ApplySync replaces the content list with the reconciled result of an edge
// sync cycle. It runs through the same lock and persistence path as operator
// mutations so the local scheduler observes a consistent list.
func (l *Location) ApplySync(items []models.ContentItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OrderIndex < items[j].OrderIndex
	})
	l.items = append(l.items[:0], items...)
	l.repackLocked()

	for _, item := range l.items {
		if item.ID > l.lastID {
			l.lastID = item.ID
		}
	}

	if err := l.persistLocked(); err != nil {
		return err
	}
	l.broadcastContentLocked(events.ActionSync)
	telemetry.MutationsTotal.WithLabelValues(l.id, events.ActionSync).Inc()
	return nil
}

// remeasureVideosLocked re-resolves durations for on-disk videos and returns
// how many cached values changed. Items whose file is missing are skipped.
func (l *Location) remeasureVideosLocked(ctx context.Context) int {
	changed := 0
	for i, item := range l.items {
		if item.Kind != models.KindVideo || !l.files.Exists(l.id, item.Filename) {
			continue
		}
		measured := l.resolver.Resolve(ctx, l.files.Path(l.id, item.Filename), models.KindVideo)
		if measured > 0 && measured != item.DurationSeconds {
			l.logger.Info().Str("filename", item.Filename).
				Int("old", item.DurationSeconds).Int("new", measured).
				Msg("video duration corrected")
			l.items[i].DurationSeconds = measured
			changed++
		}
	}
	return changed
}

// nextID allocates a collision-free monotonically increasing item id. Items
// admitted in the same millisecond are disambiguated by the ordinal offset.
func (l *Location) nextID(ordinal int64) int64 {
	id := time.Now().UnixMilli() + ordinal
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

// indexOfLocked returns the slice index of an item id, or -1.
func (l *Location) indexOfLocked(id int64) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// repackLocked rewrites order indexes to 0..n-1 in current slice order.
func (l *Location) repackLocked() {
	for i := range l.items {
		l.items[i].OrderIndex = i
	}
}

// activeLocked returns the active subsequence in order index order. It is
// recomputed on every access; callers must not cache it across unlocks.
func (l *Location) activeLocked() []models.ContentItem {
	return lo.Filter(l.items, func(item models.ContentItem, _ int) bool {
		return item.IsActive
	})
}

// broadcastContentLocked publishes a content list change with the full list.
func (l *Location) broadcastContentLocked(action string) {
	l.bus.Publish(events.Event{
		Type:     events.EventContentUpdated,
		Location: l.id,
		Action:   action,
		Items:    append([]models.ContentItem(nil), l.items...),
	})
}

// persistLocked rewrites the location's content list file atomically.
func (l *Location) persistLocked() error {
	data, err := json.MarshalIndent(l.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode content list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.listPath), 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	if err := renameio.WriteFile(l.listPath, data, 0o644); err != nil {
		return fmt.Errorf("write content list: %w", err)
	}
	return nil
}

// load reads the persisted content list. Absence of the file means an empty
// playlist.
func (l *Location) load() error {
	data, err := os.ReadFile(l.listPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.items = nil
			return nil
		}
		return fmt.Errorf("read content list: %w", err)
	}

	var items []models.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode content list: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OrderIndex < items[j].OrderIndex
	})
	l.items = items
	l.repackLocked()

	for _, item := range l.items {
		if item.ID > l.lastID {
			l.lastID = item.ID
		}
	}

	l.logger.Info().Int("items", len(l.items)).Msg("content list loaded")
	return nil
}
