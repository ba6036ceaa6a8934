/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import "errors"

var (
	// ErrNotFound is returned when an operation targets a nonexistent item id.
	ErrNotFound = errors.New("content item not found")

	// ErrInvalidInput is returned for bad or missing parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyPlaylist is returned by Start when the location has no items.
	ErrEmptyPlaylist = errors.New("playlist is empty")

	// ErrAlreadyRunning is returned by Start while the scheduler is running.
	ErrAlreadyRunning = errors.New("scheduler already running")

	// ErrAlreadyStopped is returned by Stop while the scheduler is stopped.
	ErrAlreadyStopped = errors.New("scheduler already stopped")

	// ErrUnknownLocation is returned for location ids outside the registry.
	ErrUnknownLocation = errors.New("unknown location")
)
