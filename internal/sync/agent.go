/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sync reconciles a display device's local playlist with the central
// server. The agent polls on an interval, downloads media it is missing, and
// applies the central content list through the same locked mutation path the
// local panel uses.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/citysigns/ledpanel/internal/models"
	"github.com/citysigns/ledpanel/internal/playlist"
	"github.com/citysigns/ledpanel/internal/telemetry"
)

// Playlist is the subset of the location API the agent needs.
type Playlist interface {
	ID() string
	Items() []models.ContentItem
	ApplySync(items []models.ContentItem) error
}

// Options tunes agent timing. Zero values fall back to the defaults the
// central deployment uses.
type Options struct {
	Interval        time.Duration
	ProbeTimeout    time.Duration
	ListTimeout     time.Duration
	DownloadTimeout time.Duration
	DeleteOrphans   bool
}

func (o *Options) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 5 * time.Second
	}
	if o.ListTimeout <= 0 {
		o.ListTimeout = 10 * time.Second
	}
	if o.DownloadTimeout <= 0 {
		o.DownloadTimeout = 30 * time.Second
	}
}

// Agent keeps one location's content in step with the central server.
type Agent struct {
	centralURL string
	location   Playlist
	files      playlist.MediaFiles
	opts       Options
	logger     zerolog.Logger
}

// NewAgent creates a sync agent for a location.
func NewAgent(centralURL string, location Playlist, files playlist.MediaFiles, opts Options, logger zerolog.Logger) *Agent {
	opts.applyDefaults()
	return &Agent{
		centralURL: strings.TrimRight(centralURL, "/"),
		location:   location,
		files:      files,
		opts:       opts,
		logger:     logger.With().Str("component", "sync").Str("location", location.ID()).Logger(),
	}
}

// Run polls until the context is cancelled. The first cycle happens
// immediately. A failed cycle is logged and retried on the next tick; it
// never takes the agent down.
func (a *Agent) Run(ctx context.Context) {
	a.logger.Info().Str("central", a.centralURL).Dur("interval", a.opts.Interval).Msg("sync agent started")

	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	for {
		if err := a.Cycle(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("sync cycle failed")
			telemetry.SyncCyclesTotal.WithLabelValues(a.location.ID(), "error").Inc()
		} else {
			telemetry.SyncCyclesTotal.WithLabelValues(a.location.ID(), "ok").Inc()
		}

		select {
		case <-ctx.Done():
			a.logger.Info().Msg("sync agent stopped")
			return
		case <-ticker.C:
		}
	}
}

// Cycle performs one reconciliation pass: probe, fetch, merge, apply. The
// merge keeps existing local records for filenames the central list still
// carries, drops records the central list no longer references, and appends
// a new central record only once its media download has succeeded. A probe
// or fetch failure leaves local state untouched.
func (a *Agent) Cycle(ctx context.Context) error {
	if err := a.probe(ctx); err != nil {
		return fmt.Errorf("central unreachable: %w", err)
	}

	remote, err := a.fetchContentList(ctx)
	if err != nil {
		return fmt.Errorf("fetch content list: %w", err)
	}

	locationID := a.location.ID()
	local := a.location.Items()

	remoteNames := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		remoteNames[item.Filename] = struct{}{}
	}
	localNames := make(map[string]struct{}, len(local))
	for _, item := range local {
		localNames[item.Filename] = struct{}{}
	}

	// Local records win for files the device already tracks; operator edits
	// made on the device (duration, active flag) survive the sync.
	reconciled := make([]models.ContentItem, 0, len(remote))
	for _, item := range local {
		if _, ok := remoteNames[item.Filename]; ok {
			reconciled = append(reconciled, item)
		}
	}

	// Re-fetch backing files the device has a record for but lost on disk.
	// A failed re-fetch keeps the record; the scheduler skips it until the
	// next cycle.
	for _, item := range reconciled {
		if a.files.Exists(locationID, item.Filename) {
			continue
		}
		a.fetchMedia(ctx, item.Filename)
	}

	// New central records join the list only once their download succeeds.
	for _, item := range remote {
		if _, ok := localNames[item.Filename]; ok {
			continue
		}
		if !a.files.Exists(locationID, item.Filename) && !a.fetchMedia(ctx, item.Filename) {
			continue
		}
		reconciled = append(reconciled, item)
	}

	for i := range reconciled {
		reconciled[i].OrderIndex = i
	}

	if a.opts.DeleteOrphans {
		a.prune(remote)
	}

	if !listsEqual(local, reconciled) {
		if err := a.location.ApplySync(reconciled); err != nil {
			return fmt.Errorf("apply content list: %w", err)
		}
		a.logger.Info().Int("items", len(reconciled)).Msg("content list updated from central")
	}

	return nil
}

// fetchMedia downloads one file and reports success.
func (a *Agent) fetchMedia(ctx context.Context, filename string) bool {
	locationID := a.location.ID()
	if err := a.download(ctx, filename); err != nil {
		a.logger.Warn().Err(err).Str("filename", filename).Msg("download failed")
		telemetry.SyncDownloadsTotal.WithLabelValues(locationID, "error").Inc()
		return false
	}
	telemetry.SyncDownloadsTotal.WithLabelValues(locationID, "ok").Inc()
	a.logger.Info().Str("filename", filename).Msg("media downloaded")
	return true
}

// probe checks that the central server answers at all before any state is
// touched.
func (a *Agent) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.centralURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe returned %d", resp.StatusCode)
	}
	return nil
}

type contentListResponse struct {
	Location string               `json:"location"`
	Content  []models.ContentItem `json:"content"`
}

func (a *Agent) fetchContentList(ctx context.Context) ([]models.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ListTimeout)
	defer cancel()

	endpoint := a.centralURL + "/api/content/" + url.PathEscape(a.location.ID())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list returned %d", resp.StatusCode)
	}

	var payload contentListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Content, nil
}

// download streams one media file from the central server into the local
// store. The store writes to a temp file first, so a dropped connection
// never leaves a half file where the scheduler can see it.
func (a *Agent) download(ctx context.Context, filename string) error {
	ctx, cancel := context.WithTimeout(ctx, a.opts.DownloadTimeout)
	defer cancel()

	endpoint := a.centralURL + "/uploads/" + url.PathEscape(a.location.ID()) + "/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %d", resp.StatusCode)
	}

	_, err = a.files.Save(a.location.ID(), filename, io.LimitReader(resp.Body, maxDownloadBytes))
	return err
}

// prune removes local media files the central list no longer references.
func (a *Agent) prune(remote []models.ContentItem) {
	wanted := lo.SliceToMap(remote, func(item models.ContentItem) (string, struct{}) {
		return item.Filename, struct{}{}
	})

	for _, item := range a.location.Items() {
		if _, ok := wanted[item.Filename]; ok {
			continue
		}
		if err := a.files.Remove(a.location.ID(), item.Filename); err != nil {
			a.logger.Warn().Err(err).Str("filename", item.Filename).Msg("orphan removal failed")
			continue
		}
		a.logger.Info().Str("filename", item.Filename).Msg("orphan media removed")
	}
}

// maxDownloadBytes caps a single media download at 2 GiB.
const maxDownloadBytes = 2 << 30

// listsEqual compares two content lists field by field in order.
func listsEqual(local, remote []models.ContentItem) bool {
	if len(local) != len(remote) {
		return false
	}
	for i := range local {
		if local[i] != remote[i] {
			return false
		}
	}
	return true
}
