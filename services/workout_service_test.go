package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"hunter-progression/models"
)

// scenarioEvent: 120 reps, 3 compound sets, 1 PR.
func scenarioEvent(userID, workoutID string, ts time.Time) *models.WorkoutEvent {
	return &models.WorkoutEvent{
		UserID:       userID,
		WorkoutID:    workoutID,
		Timestamp:    ts,
		IsNewWorkout: true,
		Exercises: []models.WorkoutExercise{
			{ExerciseID: "back_squat", IsCompound: true, Sets: []models.WorkoutSet{
				{Weight: 100, Reps: 10, IsNewPR: true},
				{Weight: 100, Reps: 10},
				{Weight: 100, Reps: 10},
			}},
			{ExerciseID: "curl", Sets: []models.WorkoutSet{
				{Weight: 10, Reps: 30},
				{Weight: 10, Reps: 30},
				{Weight: 10, Reps: 30},
			}},
		},
	}
}

func questsByCode(t *testing.T, e *testEngine, userID string) map[string]models.UserQuest {
	t.Helper()
	quests, err := e.Quests.GetTodayQuests(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetTodayQuests() error = %v", err)
	}
	out := make(map[string]models.UserQuest, len(quests))
	for _, q := range quests {
		out[q.QuestCode] = q
	}
	return out
}

func TestWorkoutService_QuestProgress(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()
	seedProgress(t, e.DB, "hunter-1", models.XPForLevel(5))

	summary, err := e.Workouts.SubmitWorkoutEvent(ctx, scenarioEvent("hunter-1", "w1", e.Clock.Now()))
	if err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}

	quests := questsByCode(t, e, "hunter-1")
	tests := []struct {
		code          string
		wantProgress  int64
		wantCompleted bool
	}{
		{code: "century_club", wantProgress: 120, wantCompleted: true},
		{code: "compound_focus", wantProgress: 3, wantCompleted: false},
		{code: "pr_first", wantProgress: 1, wantCompleted: true},
	}
	for _, tt := range tests {
		q := quests[tt.code]
		if q.Progress != tt.wantProgress || q.Completed != tt.wantCompleted || q.Claimed {
			t.Errorf("%s: progress %d completed %v claimed %v, want %d %v false",
				tt.code, q.Progress, q.Completed, q.Claimed, tt.wantProgress, tt.wantCompleted)
		}
	}

	// direct event XP only: 20 for the workout, 50 for the PR
	if summary.EventXP != 70 {
		t.Errorf("EventXP = %d, want 70", summary.EventXP)
	}
	if summary.XPDelta != summary.EventXP+summary.AchievementXP {
		t.Errorf("XPDelta = %d, want event %d + achievements %d", summary.XPDelta, summary.EventXP, summary.AchievementXP)
	}
	if len(summary.QuestsAdvanced) != 3 {
		t.Errorf("QuestsAdvanced = %d, want 3", len(summary.QuestsAdvanced))
	}
	prog := loadProgress(t, e.DB, "hunter-1")
	if prog.TotalXP != models.XPForLevel(5)+summary.XPDelta {
		t.Errorf("total_xp = %d, quest XP must wait for a claim", prog.TotalXP)
	}
	if prog.TotalReps != 120 || prog.TotalSets != 6 || prog.TotalPRs != 1 || prog.TotalWorkouts != 1 {
		t.Errorf("counters = reps %d sets %d prs %d workouts %d", prog.TotalReps, prog.TotalSets, prog.TotalPRs, prog.TotalWorkouts)
	}
}

func TestWorkoutService_DuplicateEvent(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()

	first, err := e.Workouts.SubmitWorkoutEvent(ctx, scenarioEvent("hunter-1", "w1", e.Clock.Now()))
	if err != nil {
		t.Fatalf("first SubmitWorkoutEvent() error = %v", err)
	}
	afterFirst := loadProgress(t, e.DB, "hunter-1")
	questsFirst := questsByCode(t, e, "hunter-1")

	e.Clock.Advance(time.Minute)
	second, err := e.Workouts.SubmitWorkoutEvent(ctx, scenarioEvent("hunter-1", "w1", e.Clock.Now()))
	if !errors.Is(err, ErrDuplicateEvent) || KindOf(err) != KindConflict {
		t.Fatalf("second SubmitWorkoutEvent() error = %v, want ErrDuplicateEvent", err)
	}
	if second == nil || !second.Duplicate || second.XPDelta != first.XPDelta {
		t.Errorf("replayed summary = %+v, want first summary flagged duplicate", second)
	}

	afterSecond := loadProgress(t, e.DB, "hunter-1")
	if afterSecond.TotalXP != afterFirst.TotalXP || afterSecond.TotalReps != afterFirst.TotalReps {
		t.Errorf("duplicate changed ledger: xp %d -> %d, reps %d -> %d",
			afterFirst.TotalXP, afterSecond.TotalXP, afterFirst.TotalReps, afterSecond.TotalReps)
	}
	for code, q := range questsByCode(t, e, "hunter-1") {
		if q.Progress != questsFirst[code].Progress {
			t.Errorf("duplicate changed %s progress: %d -> %d", code, questsFirst[code].Progress, q.Progress)
		}
	}

	// same workout id from another user is a different event
	if _, err := e.Workouts.SubmitWorkoutEvent(ctx, scenarioEvent("hunter-2", "w1", e.Clock.Now())); err != nil {
		t.Errorf("other user's w1 error = %v", err)
	}
}

func TestWorkoutService_Validation(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()
	now := e.Clock.Now()

	tests := []struct {
		name string
		ev   *models.WorkoutEvent
	}{
		{name: "missing user", ev: &models.WorkoutEvent{WorkoutID: "w1", Timestamp: now}},
		{name: "missing workout id", ev: &models.WorkoutEvent{UserID: "hunter-1", Timestamp: now}},
		{name: "missing timestamp", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1"}},
		{name: "bad timezone", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now, Timezone: "Mars/Olympus"}},
		{name: "negative reps", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now,
			Exercises: []models.WorkoutExercise{{ExerciseID: "curl", Sets: []models.WorkoutSet{{Weight: 10, Reps: -1}}}}}},
		{name: "negative streak", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now, CurrentStreak: -1}},
		{name: "huge reps", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now,
			Exercises: []models.WorkoutExercise{{ExerciseID: "curl", Sets: []models.WorkoutSet{{Weight: 10, Reps: math.MaxInt64 - 5}}}}}},
		{name: "huge weight", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now,
			Exercises: []models.WorkoutExercise{{ExerciseID: "curl", Sets: []models.WorkoutSet{{Weight: 1e18, Reps: 5}}}}}},
		{name: "too many sets", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now,
			Exercises: []models.WorkoutExercise{{ExerciseID: "curl", Sets: make([]models.WorkoutSet, 101)}}}},
		{name: "huge streak", ev: &models.WorkoutEvent{UserID: "hunter-1", WorkoutID: "w1", Timestamp: now, CurrentStreak: 1 << 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Workouts.SubmitWorkoutEvent(ctx, tt.ev)
			if !errors.Is(err, ErrInvalidEvent) || KindOf(err) != KindValidation {
				t.Errorf("SubmitWorkoutEvent() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestWorkoutService_StreakAndTimezone(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()
	// 02:00 UTC on the 7th is still the 6th in Los Angeles
	e.Clock.now = time.Date(2025, 10, 7, 2, 0, 0, 0, time.UTC)

	ev := workoutEvent("hunter-1", "w1", e.Clock.Now(), 1, false)
	ev.Timezone = "America/Los_Angeles"
	ev.CurrentStreak = 5
	if _, err := e.Workouts.SubmitWorkoutEvent(ctx, ev); err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}
	ev = workoutEvent("hunter-1", "w2", e.Clock.Now(), 1, false)
	ev.CurrentStreak = 1
	if _, err := e.Workouts.SubmitWorkoutEvent(ctx, ev); err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}

	prog := loadProgress(t, e.DB, "hunter-1")
	if prog.Timezone != "America/Los_Angeles" || prog.LastEventDate != "2025-10-06" {
		t.Errorf("timezone %s last_event_date %s, want America/Los_Angeles 2025-10-06", prog.Timezone, prog.LastEventDate)
	}
	if prog.CurrentStreak != 1 || prog.LongestStreak != 5 {
		t.Errorf("streaks current %d longest %d, want 1 and 5", prog.CurrentStreak, prog.LongestStreak)
	}
	for _, q := range questsByCode(t, e, "hunter-1") {
		if q.Date != "2025-10-06" {
			t.Errorf("quest %s dated %s, want the local day 2025-10-06", q.QuestCode, q.Date)
		}
	}
}

func TestWorkoutService_LevelAndRankUp(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()
	// 50 XP short of level 11; a PR workout pays 70 (plus achievements)
	seedProgress(t, e.DB, "hunter-1", models.XPForLevel(11)-50)

	summary, err := e.Workouts.SubmitWorkoutEvent(ctx, workoutEvent("hunter-1", "w1", e.Clock.Now(), 1, true))
	if err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}
	if !summary.LeveledUp || summary.PreviousLevel != 10 || summary.NewLevel != 11 {
		t.Errorf("level change %d -> %d (leveled_up %v), want 10 -> 11", summary.PreviousLevel, summary.NewLevel, summary.LeveledUp)
	}
	if !summary.RankChanged || summary.PreviousRank != models.RankE || summary.NewRank != models.RankD {
		t.Errorf("rank change %s -> %s (changed %v), want E -> D", summary.PreviousRank, summary.NewRank, summary.RankChanged)
	}
	prog := loadProgress(t, e.DB, "hunter-1")
	if prog.LastLevelUpAt == nil || prog.LastRankUpAt == nil {
		t.Errorf("milestones not stamped: %v %v", prog.LastLevelUpAt, prog.LastRankUpAt)
	}
}

func TestWorkoutService_LiftAchievementFromSnapshot(t *testing.T) {
	e := newTestEngine(t, quietGates)
	ctx := context.Background()
	if err := e.DB.Create(&models.StrengthSnapshot{
		ExternalUserID: "hunter-1",
		ExerciseID:     "bench_press",
		BestE1RM:       110,
		SourceUpdated:  e.Clock.Now(),
	}).Error; err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	summary, err := e.Workouts.SubmitWorkoutEvent(ctx, workoutEvent("hunter-1", "w1", e.Clock.Now(), 1, false))
	if err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}
	want := map[string]bool{"first_workout": true, "bench_100": true}
	if len(summary.AchievementsUnlocked) != len(want) {
		t.Fatalf("AchievementsUnlocked = %v, want first_workout and bench_100", summary.AchievementsUnlocked)
	}
	for _, c := range summary.AchievementsUnlocked {
		if !want[c] {
			t.Errorf("unexpected unlock %s", c)
		}
	}
	if summary.AchievementXP != 175 {
		t.Errorf("AchievementXP = %d, want 175", summary.AchievementXP)
	}
}

func TestWorkoutService_SpawnsGate(t *testing.T) {
	settings := quietGates
	settings.SpawnChance = 1
	e := newTestEngine(t, settings)
	ctx := context.Background()

	summary, err := e.Workouts.SubmitWorkoutEvent(ctx, workoutEvent("hunter-1", "w1", e.Clock.Now(), 1, false))
	if err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}
	if summary.GateSpawned == nil {
		t.Fatal("GateSpawned = nil with spawn chance 1")
	}
	g, err := e.Gates.GetGate(ctx, "hunter-1", *summary.GateSpawned)
	if err != nil || g.Status != models.GateAvailable {
		t.Errorf("spawned gate = %v, %v", g, err)
	}

	// the only eligible definition is already open
	summary, err = e.Workouts.SubmitWorkoutEvent(ctx, workoutEvent("hunter-1", "w2", e.Clock.Now(), 1, false))
	if err != nil {
		t.Fatalf("SubmitWorkoutEvent() error = %v", err)
	}
	if summary.GateSpawned != nil {
		t.Errorf("second event spawned %s while goblin_den is open", *summary.GateSpawned)
	}
}
