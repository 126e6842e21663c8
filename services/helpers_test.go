package services

import (
	"math/rand/v2"
	"testing"
	"time"

	"hunter-progression/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCatalogJSON = `{
  "version": "test-1",
  "quests": [
    {"code": "century_club", "name": "Century Club", "objective_type": "total_reps", "target_value": 100, "xp_reward": 25, "difficulty": "easy"},
    {"code": "compound_focus", "name": "Compound Focus", "objective_type": "compound_sets", "target_value": 5, "xp_reward": 30, "difficulty": "medium"},
    {"code": "pr_first", "name": "Break a Limit", "objective_type": "pr", "target_value": 1, "xp_reward": 25, "difficulty": "easy"}
  ],
  "gates": [
    {
      "code": "goblin_den", "name": "Goblin Den", "rank": "E", "min_level": 1, "duration_hours": 48,
      "base_xp_reward": 150, "rarity_weight": 60,
      "objectives": [
        {"type": "total_sets", "target": 15, "target_formula": "rank_scaled", "required": true},
        {"type": "workout_count", "target": 2, "required": true},
        {"type": "pr", "target": 1, "required": false, "xp_bonus": 25}
      ]
    },
    {
      "code": "wolf_pack_cave", "name": "Wolf Pack Cave", "rank": "E", "min_level": 3, "duration_hours": 72,
      "base_xp_reward": 200, "rarity_weight": 40,
      "objectives": [
        {"type": "total_reps", "target": 250, "target_formula": "rank_scaled", "required": true}
      ]
    }
  ],
  "achievements": [
    {"code": "first_workout", "name": "Awakening", "rarity": "common", "xp_reward": 25, "condition": {"metric": "workout_count", "threshold": 1}},
    {"code": "level_10", "name": "Double Digits", "rarity": "common", "xp_reward": 50, "condition": {"metric": "level", "threshold": 10}},
    {"code": "gate_breaker", "name": "Gate Breaker", "rarity": "rare", "xp_reward": 50, "condition": {"metric": "gates_cleared", "threshold": 1}},
    {"code": "bench_100", "name": "Triple Plate", "rarity": "epic", "xp_reward": 150, "condition": {"metric": "lift_e1rm", "threshold": 100, "exercise_id": "bench_press"}}
  ]
}`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := ParseCatalog([]byte(testCatalogJSON))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	return c
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// one connection, so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.UserQuest{},
		&models.UserGate{},
		&models.UserGateObjective{},
		&models.UserAchievement{},
		&models.ProcessedWorkout{},
		&models.StrengthSnapshot{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testClock is a settable clock. Whole seconds only, so sqlite's text
// timestamps compare correctly.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEngine struct {
	DB           *gorm.DB
	Catalog      *Catalog
	Clock        *testClock
	Achievements *AchievementService
	Ledger       *ProgressionService
	Quests       *QuestService
	Gates        *GateService
	Workouts     *WorkoutService
}

func newTestEngine(t *testing.T, settings GateSettings) *testEngine {
	t.Helper()
	db := newTestDB(t)
	catalog := testCatalog(t)
	clock := &testClock{now: time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)}
	rng := NewLockedRand(rand.NewPCG(1, 2))

	ach := NewAchievementService(db, catalog, SnapshotStrengthSource{})
	ledger := NewProgressionService(db, DefaultXPWeights, ach)
	quests := NewQuestService(db, catalog, ledger, ach, rng)
	gates := NewGateService(db, catalog, ledger, ach, settings, rng)
	workouts := NewWorkoutService(db, ledger, quests, gates, ach)
	for _, now := range []*func() time.Time{&ach.Now, &ledger.Now, &quests.Now, &gates.Now, &workouts.Now} {
		*now = clock.Now
	}

	return &testEngine{
		DB:           db,
		Catalog:      catalog,
		Clock:        clock,
		Achievements: ach,
		Ledger:       ledger,
		Quests:       quests,
		Gates:        gates,
		Workouts:     workouts,
	}
}

// seedProgress creates a ledger row with the given total XP.
func seedProgress(t *testing.T, db *gorm.DB, userID string, totalXP int64) *models.UserProgress {
	t.Helper()
	prog := &models.UserProgress{ExternalUserID: userID, TotalXP: totalXP}
	if err := db.Create(prog).Error; err != nil {
		t.Fatalf("seed progress: %v", err)
	}
	return prog
}

func loadProgress(t *testing.T, db *gorm.DB, userID string) models.UserProgress {
	t.Helper()
	var prog models.UserProgress
	if err := db.Where("external_user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	return prog
}

// scriptedRand replays fixed draws, cycling when exhausted.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)]
	r.ii++
	return v % n
}

func boolPtr(b bool) *bool { return &b }
