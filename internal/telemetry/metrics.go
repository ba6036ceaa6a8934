/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry defines Prometheus metrics and the HTTP metrics endpoint.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PlaysTotal counts now-playing transitions per location.
	PlaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledpanel_plays_total",
		Help: "Number of items put on screen, by location and media kind.",
	}, []string{"location", "kind"})

	// SkipsTotal counts scheduler skips of items whose backing file is missing.
	SkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledpanel_scheduler_skips_total",
		Help: "Number of items skipped because the backing media file was missing.",
	}, []string{"location"})

	// SchedulerRunning tracks whether a location's scheduler is running.
	SchedulerRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledpanel_scheduler_running",
		Help: "1 while the location's display scheduler is running.",
	}, []string{"location"})

	// MutationsTotal counts playlist mutations by operation.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledpanel_playlist_mutations_total",
		Help: "Number of successful playlist mutations, by location and action.",
	}, []string{"location", "action"})

	// WebsocketSubscribers tracks live event feed subscribers.
	WebsocketSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledpanel_websocket_subscribers",
		Help: "Number of connected websocket event subscribers.",
	})

	// SyncCyclesTotal counts edge sync cycles by outcome.
	SyncCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledpanel_sync_cycles_total",
		Help: "Number of edge sync cycles, by location and outcome.",
	}, []string{"location", "outcome"})

	// SyncDownloadsTotal counts media downloads performed by the edge agent.
	SyncDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledpanel_sync_downloads_total",
		Help: "Number of media files downloaded from the central server, by location and outcome.",
	}, []string{"location", "outcome"})

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledpanel_http_requests_total",
		Help: "Number of HTTP requests, by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledpanel_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
