package engine

// QuotaEnforcer counts effect runs within one update step and enforces a
// maximum.
//
// An effect that writes a signal it also reads re-schedules itself forever.
// The quota turns that into a QUOTA_EXCEEDED error instead of a hang. It is
// reset at the start of every step, so long-lived components with many
// updates are never penalized.
type QuotaEnforcer struct {
	maxRuns int
	current int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxRuns int) *QuotaEnforcer {
	return &QuotaEnforcer{maxRuns: maxRuns}
}

// Check counts one effect run and validates against the limit.
func (q *QuotaEnforcer) Check(step int64) error {
	q.current++
	if q.current > q.maxRuns {
		return NewQuotaError(step, q.current, q.maxRuns)
	}
	return nil
}

// Reset sets the run counter back to 0 for a new step.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of runs counted in this step.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxRuns returns the limit.
func (q *QuotaEnforcer) MaxRuns() int {
	return q.maxRuns
}
