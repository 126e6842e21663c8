package services

import (
	"math"
	"reflect"
	"testing"
	"time"

	"hunter-progression/models"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		ev   models.WorkoutEvent
		want EventTotals
	}{
		{
			name: "mixed exercises",
			ev: models.WorkoutEvent{
				IsNewWorkout:  true,
				CurrentStreak: 4,
				Exercises: []models.WorkoutExercise{
					{ExerciseID: "bench_press", IsCompound: true, Sets: []models.WorkoutSet{
						{Weight: 100, Reps: 5},
						{Weight: 102.5, Reps: 3, IsNewPR: true},
					}},
					{ExerciseID: "curl", Sets: []models.WorkoutSet{
						{Weight: 12.5, Reps: 10},
					}},
				},
			},
			want: EventTotals{Reps: 18, Volume: 933, Sets: 3, CompoundSets: 2, Workouts: 1, PRs: 1, CurrentStreak: 4},
		},
		{
			name: "volume rounded once after summing",
			ev: models.WorkoutEvent{
				Exercises: []models.WorkoutExercise{
					{ExerciseID: "curl", Sets: []models.WorkoutSet{
						{Weight: 0.3, Reps: 1},
						{Weight: 0.3, Reps: 1},
					}},
				},
			},
			want: EventTotals{Reps: 2, Volume: 1, Sets: 2},
		},
		{
			name: "empty event",
			ev:   models.WorkoutEvent{Timestamp: time.Now()},
			want: EventTotals{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(&tt.ev); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEventTotals_ApplyProgress(t *testing.T) {
	totals := EventTotals{Reps: 40, Volume: 1200, Sets: 6, CompoundSets: 3, Workouts: 1, PRs: 2, CurrentStreak: 3}
	tests := []struct {
		name     string
		typ      models.ObjectiveType
		progress int64
		want     int64
	}{
		{name: "reps add", typ: models.ObjectiveTotalReps, progress: 70, want: 110},
		{name: "volume add", typ: models.ObjectiveTotalVolume, progress: 0, want: 1200},
		{name: "sets add", typ: models.ObjectiveTotalSets, progress: 1, want: 7},
		{name: "compound add", typ: models.ObjectiveCompoundSets, progress: 0, want: 3},
		{name: "workouts add", typ: models.ObjectiveWorkoutCount, progress: 1, want: 2},
		{name: "prs add", typ: models.ObjectivePR, progress: 0, want: 2},
		{name: "streak takes max", typ: models.ObjectiveStreak, progress: 1, want: 3},
		{name: "streak never drops", typ: models.ObjectiveStreak, progress: 5, want: 5},
		{name: "reps saturate", typ: models.ObjectiveTotalReps, progress: math.MaxInt64 - 5, want: math.MaxInt64},
		{name: "unknown type untouched", typ: models.ObjectiveType("bogus"), progress: 9, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := totals.ApplyProgress(tt.typ, tt.progress); got != tt.want {
				t.Errorf("ApplyProgress(%s, %d) = %d, want %d", tt.typ, tt.progress, got, tt.want)
			}
		})
	}
}

func TestXPWeights_EventXP(t *testing.T) {
	got := DefaultXPWeights.EventXP(EventTotals{Workouts: 1, PRs: 2, Reps: 500})
	if got != 120 {
		t.Errorf("EventXP() = %d, want 120", got)
	}
}
