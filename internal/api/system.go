/*
Copyright (C) 2026 Citysigns

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func (a *API) handleLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"locations": a.cfg.Locations})
}

type systemInfoResponse struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskTotal     uint64  `json:"disk_total"`
	DiskUsed      uint64  `json:"disk_used"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

// handleSystemInfo reports host health for the admin panel dashboard.
func (a *API) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info := systemInfoResponse{}

	if percents, err := cpu.PercentWithContext(r.Context(), 500*time.Millisecond, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		info.MemoryPercent = vm.UsedPercent
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
	}

	if usage, err := disk.UsageWithContext(r.Context(), a.cfg.MediaRoot); err == nil {
		info.DiskPercent = usage.UsedPercent
		info.DiskTotal = usage.Total
		info.DiskUsed = usage.Used
	}

	if uptime, err := host.UptimeWithContext(r.Context()); err == nil {
		info.UptimeSeconds = uptime
	}

	writeJSON(w, http.StatusOK, info)
}
