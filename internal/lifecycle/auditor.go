package lifecycle

import (
	"context"
	"time"
)

// StartAuditor runs a background goroutine that periodically checks the
// bandwidth-conservation invariants of spec.md §3 (I1, I2) and logs any
// violation found. It is read-only — strictly a diagnostic, never a
// corrective action — and stops when ctx is cancelled, the same
// ticker/ctx-cancel shape as the teacher's topology sweeper.
func (m *Manager) StartAuditor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, problem := range m.AuditInvariants() {
					m.Logger.Warn("invariant auditor: violation detected", "detail", problem)
				}
			}
		}
	}()
}
