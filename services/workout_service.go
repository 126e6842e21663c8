package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hunter-progression/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkoutService applies workout-completion events. One event is one
// transaction: quest and gate progress, event XP, gate spawn and achievement
// unlocks commit or roll back together.
type WorkoutService struct {
	DB           *gorm.DB
	Ledger       *ProgressionService
	Quests       *QuestService
	Gates        *GateService
	Achievements *AchievementService
	Now          func() time.Time

	validate *validator.Validate
}

func NewWorkoutService(db *gorm.DB, ledger *ProgressionService, quests *QuestService, gates *GateService, achievements *AchievementService) *WorkoutService {
	return &WorkoutService{
		DB:           db,
		Ledger:       ledger,
		Quests:       quests,
		Gates:        gates,
		Achievements: achievements,
		Now:          utcNow,
		validate:     validator.New(),
	}
}

// SubmitWorkoutEvent applies ev once per (user, workout id). A repeat returns
// the first submission's summary, flagged Duplicate, with ErrDuplicateEvent.
func (s *WorkoutService) SubmitWorkoutEvent(ctx context.Context, ev *models.WorkoutEvent) (*models.ProgressionSummary, error) {
	if err := s.validate.Struct(ev); err != nil {
		return nil, validationError(err)
	}

	var summary *models.ProgressionSummary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, ev.UserID)
		if err != nil {
			return err
		}

		var prior models.ProcessedWorkout
		err = tx.Where("external_user_id = ? AND workout_id = ?", ev.UserID, ev.WorkoutID).First(&prior).Error
		if err == nil {
			replay := prior.Summary.Data()
			replay.Duplicate = true
			summary = &replay
			return ErrDuplicateEvent
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check workout %s: %w", ev.WorkoutID, err)
		}

		if ev.Timezone != "" {
			prog.Timezone = ev.Timezone
		}
		now := s.Now()
		if err := s.Gates.expireDue(tx, ev.UserID, now); err != nil {
			return err
		}

		totals := Summarize(ev)
		questAdv, err := s.Quests.applyEvent(tx, prog, totals, now)
		if err != nil {
			return err
		}
		gateAdv, err := s.Gates.applyEvent(tx, ev.UserID, totals, now)
		if err != nil {
			return err
		}

		prevLevel, prevRank := prog.Level, prog.Rank
		prog.TotalWorkouts = addCapped(prog.TotalWorkouts, totals.Workouts)
		prog.TotalSets = addCapped(prog.TotalSets, totals.Sets)
		prog.TotalReps = addCapped(prog.TotalReps, totals.Reps)
		prog.TotalVolume = addCapped(prog.TotalVolume, totals.Volume)
		prog.TotalPRs = addCapped(prog.TotalPRs, totals.PRs)
		prog.CurrentStreak = ev.CurrentStreak
		prog.LongestStreak = max(prog.LongestStreak, ev.CurrentStreak)
		prog.LastEventDate = prog.LocalDate(ev.Timestamp)

		eventXP := s.Ledger.Weights.EventXP(totals)
		if _, err := s.Ledger.AwardXP(tx, prog, eventXP, "workout_"+ev.WorkoutID); err != nil {
			return err
		}

		spawned, err := s.Gates.maybeSpawn(tx, prog, now)
		if err != nil {
			return err
		}

		unlocked, achXP, err := s.Achievements.Detect(tx, prog)
		if err != nil {
			return err
		}

		change := levelChange(prevLevel, prevRank, prog, eventXP+achXP)
		summary = &models.ProgressionSummary{
			WorkoutID:            ev.WorkoutID,
			XPDelta:              eventXP + achXP,
			EventXP:              eventXP,
			AchievementXP:        achXP,
			TotalXP:              prog.TotalXP,
			LeveledUp:            change.LeveledUp,
			PreviousLevel:        change.PreviousLevel,
			NewLevel:             change.NewLevel,
			RankChanged:          change.RankChanged,
			PreviousRank:         change.PreviousRank,
			NewRank:              change.NewRank,
			QuestsAdvanced:       questAdv,
			GatesAdvanced:        gateAdv,
			AchievementsUnlocked: unlocked,
		}
		if spawned != nil {
			summary.GateSpawned = &spawned.ID
		}

		record := models.ProcessedWorkout{
			ExternalUserID: ev.UserID,
			WorkoutID:      ev.WorkoutID,
			OccurredAt:     ev.Timestamp.UTC(),
			Reps:           totals.Reps,
			Volume:         totals.Volume,
			Sets:           totals.Sets,
			CompoundSets:   totals.CompoundSets,
			PRs:            totals.PRs,
			XPEarned:       eventXP,
			Summary:        datatypes.NewJSONType(*summary),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record workout %s: %w", ev.WorkoutID, err)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicateEvent) {
		slog.Info("Duplicate workout event ignored", "user_id", ev.UserID, "workout_id", ev.WorkoutID)
		return summary, err
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Workout event applied",
		"user_id", ev.UserID,
		"workout_id", ev.WorkoutID,
		"xp", summary.XPDelta,
		"quests_advanced", len(summary.QuestsAdvanced),
		"gates_advanced", len(summary.GatesAdvanced),
		"achievements", len(summary.AchievementsUnlocked),
	)
	return summary, nil
}
