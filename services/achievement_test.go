package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"hunter-progression/models"
	"hunter-progression/services/mock"

	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

func strengthMock(t *testing.T, lifts map[string]float64) *mock.MockStrengthSource {
	src := mock.NewMockStrengthSource(gomock.NewController(t))
	src.EXPECT().
		BestE1RM(gomock.Any(), "hunter-1").
		Return(lifts, nil).
		AnyTimes()
	return src
}

func TestAchievementService_Detect(t *testing.T) {
	tests := []struct {
		name      string
		seed      models.UserProgress
		lifts     map[string]float64
		wantCodes []string
		wantXP    int64
	}{
		{
			name:      "nothing met",
			seed:      models.UserProgress{},
			wantCodes: []string{},
		},
		{
			name:      "first workout",
			seed:      models.UserProgress{TotalWorkouts: 1},
			wantCodes: []string{"first_workout"},
			wantXP:    25,
		},
		{
			name:      "unlock XP cascades into level condition",
			seed:      models.UserProgress{TotalWorkouts: 1, TotalXP: 3140},
			wantCodes: []string{"first_workout", "level_10"},
			wantXP:    75,
		},
		{
			name:      "lift from strength source",
			seed:      models.UserProgress{},
			lifts:     map[string]float64{"bench_press": 102.5},
			wantCodes: []string{"bench_100"},
			wantXP:    150,
		},
		{
			name:      "lift below threshold",
			seed:      models.UserProgress{},
			lifts:     map[string]float64{"bench_press": 99.9, "back_squat": 180},
			wantCodes: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, quietGates)
			e.Achievements.Strength = strengthMock(t, tt.lifts)
			seed := tt.seed
			seed.ExternalUserID = "hunter-1"
			if err := e.DB.Create(&seed).Error; err != nil {
				t.Fatalf("seed: %v", err)
			}

			var codes []string
			var xp int64
			err := e.DB.Transaction(func(tx *gorm.DB) error {
				prog, err := lockProgress(tx, "hunter-1")
				if err != nil {
					return err
				}
				codes, xp, err = e.Achievements.Detect(tx, prog)
				return err
			})
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if !reflect.DeepEqual(codes, tt.wantCodes) {
				t.Errorf("Detect() codes = %v, want %v", codes, tt.wantCodes)
			}
			if xp != tt.wantXP {
				t.Errorf("Detect() xp = %d, want %d", xp, tt.wantXP)
			}
			if got := loadProgress(t, e.DB, "hunter-1").TotalXP; got != seed.TotalXP+tt.wantXP {
				t.Errorf("ledger total_xp = %d, want %d", got, seed.TotalXP+tt.wantXP)
			}
		})
	}
}

func TestAchievementService_DetectIsOneShot(t *testing.T) {
	e := newTestEngine(t, quietGates)
	e.Achievements.Strength = strengthMock(t, map[string]float64{"bench_press": 120})
	seedProgress(t, e.DB, "hunter-1", 0)

	detect := func() []string {
		var codes []string
		if err := e.DB.Transaction(func(tx *gorm.DB) error {
			prog, err := lockProgress(tx, "hunter-1")
			if err != nil {
				return err
			}
			codes, _, err = e.Achievements.Detect(tx, prog)
			return err
		}); err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		return codes
	}

	if got := detect(); !reflect.DeepEqual(got, []string{"bench_100"}) {
		t.Fatalf("first Detect() = %v, want [bench_100]", got)
	}
	if got := detect(); len(got) != 0 {
		t.Errorf("second Detect() = %v, want none", got)
	}
	var rows int64
	e.DB.Model(&models.UserAchievement{}).Where("external_user_id = ?", "hunter-1").Count(&rows)
	if rows != 1 {
		t.Errorf("unlock rows = %d, want 1", rows)
	}
}

func TestAchievementService_StrengthSourceError(t *testing.T) {
	e := newTestEngine(t, quietGates)
	src := mock.NewMockStrengthSource(gomock.NewController(t))
	boom := errors.New("snapshot unavailable")
	src.EXPECT().BestE1RM(gomock.Any(), "hunter-1").Return(nil, boom)
	e.Achievements.Strength = src

	err := e.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, "hunter-1")
		if err != nil {
			return err
		}
		_, _, err = e.Achievements.Detect(tx, prog)
		return err
	})
	if !errors.Is(err, boom) {
		t.Errorf("Detect() error = %v, want %v", err, boom)
	}
}

func TestAchievementService_ListAchievements(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()
	if _, err := e.Workouts.SubmitWorkoutEvent(ctx, workoutEvent("hunter-1", "w1", e.Clock.Now(), 1, false)); err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}

	views, err := e.Achievements.ListAchievements(ctx, "hunter-1")
	if err != nil {
		t.Fatalf("ListAchievements() error = %v", err)
	}
	if len(views) != len(e.Catalog.Achievements) {
		t.Fatalf("ListAchievements() = %d views, want %d", len(views), len(e.Catalog.Achievements))
	}
	for _, v := range views {
		want := v.Code == "first_workout"
		if v.Unlocked != want || (v.UnlockedAt != nil) != want {
			t.Errorf("%s: unlocked=%v unlocked_at=%v", v.Code, v.Unlocked, v.UnlockedAt)
		}
	}
}

func TestMeetsCondition(t *testing.T) {
	prog := &models.UserProgress{
		TotalWorkouts: 10, TotalPRs: 3, Level: 26, Rank: models.RankC, TotalXP: 13000,
		TotalVolume: 50000, LongestStreak: 7, QuestsClaimed: 4, GatesCleared: 2,
	}
	lifts := map[string]float64{"deadlift": 180}
	tests := []struct {
		name string
		cond models.UnlockCondition
		want bool
	}{
		{name: "workouts met", cond: models.UnlockCondition{Metric: models.MetricWorkoutCount, Threshold: 10}, want: true},
		{name: "workouts short", cond: models.UnlockCondition{Metric: models.MetricWorkoutCount, Threshold: 11}, want: false},
		{name: "rank reached", cond: models.UnlockCondition{Metric: models.MetricRank, Rank: models.RankD}, want: true},
		{name: "rank above", cond: models.UnlockCondition{Metric: models.MetricRank, Rank: models.RankB}, want: false},
		{name: "streak", cond: models.UnlockCondition{Metric: models.MetricLongestStreak, Threshold: 7}, want: true},
		{name: "gates", cond: models.UnlockCondition{Metric: models.MetricGatesCleared, Threshold: 3}, want: false},
		{name: "lift met", cond: models.UnlockCondition{Metric: models.MetricLiftE1RM, ExerciseID: "deadlift", Threshold: 180}, want: true},
		{name: "lift missing", cond: models.UnlockCondition{Metric: models.MetricLiftE1RM, ExerciseID: "bench_press", Threshold: 1}, want: false},
		{name: "unknown metric", cond: models.UnlockCondition{Metric: "vibes", Threshold: 0}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeetsCondition(tt.cond, prog, lifts); got != tt.want {
				t.Errorf("MeetsCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}
