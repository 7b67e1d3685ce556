// Package benchmarks provides timing estimates for lifecycle pipeline phases.
package benchmarks

import "time"

// PhaseRecord is one observed run of a pipeline phase.
type PhaseRecord struct {
	Phase     string
	StartedAt time.Time
	EndedAt   *time.Time
	Failed    bool
}

// Duration returns how long the phase ran, or zero while it is still running.
func (r PhaseRecord) Duration() time.Duration {
	if r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// DefaultTimings are median phase durations against the vanilla plugin
// on hcloud (seconds), keyed by operation.
var DefaultTimings = map[string]map[string]int{
	"create": {
		"infrastructure": 20,
		"instances":      90,
		"configure":      120,
		"start":          60,
		"activate":       1,
	},
	"scale": {
		"resize":    90,
		"configure": 60,
		"cleanup":   5,
		"activate":  1,
	},
	"terminate": {
		"terminate": 10,
		"shutdown":  60,
	},
}

// PhaseOrder defines the sequence of phases per operation.
var PhaseOrder = map[string][]string{
	"create":    {"infrastructure", "instances", "configure", "start", "activate"},
	"scale":     {"resize", "configure", "cleanup", "activate"},
	"terminate": {"terminate", "shutdown"},
}

// Expected returns the benchmark duration of a phase.
func Expected(operation, phase string) (time.Duration, bool) {
	secs, ok := DefaultTimings[operation][phase]
	if !ok {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// EstimateRemaining calculates the estimated time remaining of an operation
// from its current phase, the time spent in it and the phases seen so far.
func EstimateRemaining(operation, currentPhase string, phaseElapsed time.Duration, history []PhaseRecord) time.Duration {
	scale := PerformanceScale(operation, currentPhase, phaseElapsed, history)
	return EstimateRemainingWithScale(operation, currentPhase, phaseElapsed, history, scale)
}

// EstimateRemainingWithScale calculates ETA while applying a performance scale factor.
func EstimateRemainingWithScale(
	operation, currentPhase string,
	phaseElapsed time.Duration,
	history []PhaseRecord,
	scale float64,
) time.Duration {
	order := PhaseOrder[operation]
	currentIdx := -1
	for i, p := range order {
		if p == currentPhase {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	var remaining time.Duration
	if expected, ok := Expected(operation, currentPhase); ok {
		expected = time.Duration(float64(expected) * scale)
		if expected > phaseElapsed {
			remaining += expected - phaseElapsed
		}
	}

	completed := make(map[string]bool)
	for _, rec := range history {
		if rec.EndedAt != nil {
			completed[rec.Phase] = true
		}
	}

	for _, phase := range order[currentIdx+1:] {
		if completed[phase] {
			continue
		}
		if expected, ok := Expected(operation, phase); ok {
			remaining += time.Duration(float64(expected) * scale)
		}
	}
	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected durations.
// Example: expected 20s, observed 30s => scale=1.5 (future ETAs are stretched by 50%).
func PerformanceScale(operation, currentPhase string, phaseElapsed time.Duration, history []PhaseRecord) float64 {
	var expectedTotal, actualTotal time.Duration

	for _, rec := range history {
		expected, ok := Expected(operation, rec.Phase)
		if !ok || rec.EndedAt == nil {
			continue
		}
		expectedTotal += expected
		actualTotal += rec.Duration()
	}

	// An overrunning current phase is folded in so the ETA adapts quickly.
	if expected, ok := Expected(operation, currentPhase); ok && phaseElapsed > expected {
		expectedTotal += expected
		actualTotal += phaseElapsed
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// Progress returns the share of the operation's expected time covered by
// completed phases, between 0 and 1.
func Progress(operation string, history []PhaseRecord) float64 {
	total := TotalEstimate(operation)
	if total == 0 {
		return 0
	}
	var done time.Duration
	seen := make(map[string]bool)
	for _, rec := range history {
		if rec.EndedAt == nil || rec.Failed || seen[rec.Phase] {
			continue
		}
		seen[rec.Phase] = true
		if expected, ok := Expected(operation, rec.Phase); ok {
			done += expected
		}
	}
	return min(float64(done)/float64(total), 1.0)
}

// TotalEstimate returns the total estimated duration of an operation.
func TotalEstimate(operation string) time.Duration {
	var total time.Duration
	for _, phase := range PhaseOrder[operation] {
		if expected, ok := Expected(operation, phase); ok {
			total += expected
		}
	}
	return total
}
