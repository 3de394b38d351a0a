//go:build debug_bindless

package reclaim

import (
	"context"

	"log/slog"
)

const (
	// stallWarnThreshold is the number of consecutive no-progress sweeps
	// before the first warning
	stallWarnThreshold = 8
	// stallWarnBackoffCap bounds the exponential backoff between warnings
	stallWarnBackoffCap = 1024
)

// stallMonitor emits a rate-limited warning when a timeline's completed value
// stops advancing while buckets remain pending. Observability only: it never
// alters reclamation behavior, and it compiles out entirely without the
// debug_bindless build tag.
type stallMonitor struct {
	lastCompleted uint64
	stalledSweeps int
	nextWarn      int
}

// observe is called once per sweep with the timeline's queue lock held.
func (m *stallMonitor) observe(logger *slog.Logger, timeline any, completed uint64, pendingBuckets int) {
	if pendingBuckets == 0 || completed != m.lastCompleted {
		m.lastCompleted = completed
		m.stalledSweeps = 0
		m.nextWarn = stallWarnThreshold
		return
	}

	if m.nextWarn == 0 {
		m.nextWarn = stallWarnThreshold
	}

	m.stalledSweeps++
	if m.stalledSweeps < m.nextWarn {
		return
	}

	logger.LogAttrs(context.Background(), slog.LevelWarn, "timeline has not advanced across repeated sweeps while buckets remain pending",
		slog.Any("timeline", timeline),
		slog.Uint64("completed", completed),
		slog.Int("pendingBuckets", pendingBuckets),
		slog.Int("stalledSweeps", m.stalledSweeps))

	if m.nextWarn < stallWarnBackoffCap {
		m.nextWarn *= 2
	} else {
		m.nextWarn += stallWarnBackoffCap
	}
}
