//go:build !debug_bindless

package reclaim

import "log/slog"

// stallMonitor emits a rate-limited warning when a timeline's completed value
// stops advancing while buckets remain pending. Observability only: it never
// alters reclamation behavior, and it compiles out entirely without the
// debug_bindless build tag.
type stallMonitor struct{}

// observe is called once per sweep with the timeline's queue lock held.
func (m *stallMonitor) observe(logger *slog.Logger, timeline any, completed uint64, pendingBuckets int) {
}
