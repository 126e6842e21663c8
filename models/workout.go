package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WorkoutSet struct {
	Weight  float64 `json:"weight" validate:"gte=0,lte=5000"`
	Reps    int64   `json:"reps" validate:"gte=0,lte=10000"`
	IsNewPR bool    `json:"is_new_pr"`
}

type WorkoutExercise struct {
	ExerciseID string       `json:"exercise_id" validate:"required,max=128"`
	IsCompound bool         `json:"is_compound"`
	Sets       []WorkoutSet `json:"sets" validate:"max=100,dive"`
}

// WorkoutEvent is the normalized workout-completion event handed over by the
// workout-logging service. WorkoutID is the idempotency key.
type WorkoutEvent struct {
	UserID        string            `json:"user_id" validate:"required,max=128"`
	WorkoutID     string            `json:"workout_id" validate:"required,max=128"`
	Timestamp     time.Time         `json:"timestamp" validate:"required"`
	Timezone      string            `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Exercises     []WorkoutExercise `json:"exercises" validate:"max=50,dive"`
	IsNewWorkout  bool              `json:"is_new_workout"`
	CurrentStreak int               `json:"current_streak" validate:"gte=0,lte=100000"`
}

// ProcessedWorkout records every applied event so retries replay the stored
// summary instead of re-applying deltas.
type ProcessedWorkout struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_processed_workout,priority:1" json:"external_user_id"`
	WorkoutID      string    `gorm:"not null;uniqueIndex:idx_processed_workout,priority:2" json:"workout_id"`
	OccurredAt     time.Time `gorm:"not null" json:"occurred_at"`

	Reps         int64 `json:"reps"`
	Volume       int64 `json:"volume"`
	Sets         int64 `json:"sets"`
	CompoundSets int64 `json:"compound_sets"`
	PRs          int64 `json:"prs"`

	// XP awarded directly by the event (not quests or achievements)
	XPEarned int64 `json:"xp_earned" gorm:"default:0"`

	Summary datatypes.JSONType[ProgressionSummary] `json:"summary"`

	Timestamps
}

func (p *ProcessedWorkout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
