package services

import (
	"log/slog"
	"math"

	"hunter-progression/models"
)

// EventTotals is a workout event folded into one number per objective type.
type EventTotals struct {
	Reps          int64
	Volume        int64
	Sets          int64
	CompoundSets  int64
	Workouts      int64
	PRs           int64
	CurrentStreak int64
}

// Summarize folds an event. Volume is Σ weight × reps rounded to the nearest
// integer once, after summing.
func Summarize(ev *models.WorkoutEvent) EventTotals {
	var t EventTotals
	var volume float64
	for _, ex := range ev.Exercises {
		for _, set := range ex.Sets {
			t.Sets++
			t.Reps += set.Reps
			volume += set.Weight * float64(set.Reps)
			if ex.IsCompound {
				t.CompoundSets++
			}
			if set.IsNewPR {
				t.PRs++
			}
		}
	}
	t.Volume = int64(math.Round(volume))
	if ev.IsNewWorkout {
		t.Workouts = 1
	}
	t.CurrentStreak = int64(ev.CurrentStreak)
	return t
}

// Delta returns the progress contribution of the event for one objective type.
// For streak objectives it is the reported streak, applied with max rather
// than added. Unknown types contribute nothing and report ok=false.
func (t EventTotals) Delta(typ models.ObjectiveType) (int64, bool) {
	switch typ {
	case models.ObjectiveTotalReps:
		return t.Reps, true
	case models.ObjectiveTotalVolume:
		return t.Volume, true
	case models.ObjectiveTotalSets:
		return t.Sets, true
	case models.ObjectiveCompoundSets:
		return t.CompoundSets, true
	case models.ObjectiveWorkoutCount:
		return t.Workouts, true
	case models.ObjectivePR:
		return t.PRs, true
	case models.ObjectiveStreak:
		return t.CurrentStreak, true
	default:
		return 0, false
	}
}

// ApplyProgress returns the new progress value of an objective after the
// event. The result is never below progress.
func (t EventTotals) ApplyProgress(typ models.ObjectiveType, progress int64) int64 {
	delta, ok := t.Delta(typ)
	if !ok {
		slog.Warn("Unknown objective type, skipping", "objective_type", string(typ))
		return progress
	}
	if delta < 0 {
		delta = 0
	}
	if typ.Replaces() {
		return max(progress, delta)
	}
	return addCapped(progress, delta)
}

// addCapped adds a non-negative delta, saturating at math.MaxInt64.
func addCapped(a, delta int64) int64 {
	if delta > 0 && a > math.MaxInt64-delta {
		return math.MaxInt64
	}
	return a + delta
}
