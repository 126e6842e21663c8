package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hunter-progression/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GateSettings are the spawn policy knobs (env-tunable).
type GateSettings struct {
	SpawnChance         float64 // per workout event
	RareChance          float64
	StretchChance       float64
	StretchBonusPercent int
	MaxOpenGates        int // unresolved gates per user
	MaxActiveGates      int
}

var DefaultGateSettings = GateSettings{
	SpawnChance:         0.35,
	RareChance:          0.05,
	StretchChance:       0.15,
	StretchBonusPercent: 50,
	MaxOpenGates:        3,
	MaxActiveGates:      1,
}

// GateBoard groups a user's gates the way the gate list screen shows them.
type GateBoard struct {
	Available          []models.UserGate `json:"available"`
	Active             []models.UserGate `json:"active"`
	CompletedUnclaimed []models.UserGate `json:"completed_unclaimed"`
}

// ForceSpawnOptions narrow an operator spawn. Nil flags are rolled normally.
type ForceSpawnOptions struct {
	GateCode string      `json:"gate_code,omitempty"`
	Rank     models.Rank `json:"rank,omitempty"`
	Rare     *bool       `json:"rare,omitempty"`
	Stretch  *bool       `json:"stretch,omitempty"`
}

type GateService struct {
	DB           *gorm.DB
	Catalog      *Catalog
	Ledger       *ProgressionService
	Achievements *AchievementService
	Settings     GateSettings
	Rand         RandSource
	Now          func() time.Time
}

func NewGateService(db *gorm.DB, catalog *Catalog, ledger *ProgressionService, achievements *AchievementService, settings GateSettings, rng RandSource) *GateService {
	return &GateService{
		DB:           db,
		Catalog:      catalog,
		Ledger:       ledger,
		Achievements: achievements,
		Settings:     settings,
		Rand:         rng,
		Now:          utcNow,
	}
}

// ListGates resolves expiry, then returns the user's open and claimable gates.
func (s *GateService) ListGates(ctx context.Context, userID string) (*GateBoard, error) {
	board := &GateBoard{
		Available:          []models.UserGate{},
		Active:             []models.UserGate{},
		CompletedUnclaimed: []models.UserGate{},
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProgress(tx, userID); err != nil {
			return err
		}
		if err := s.expireDue(tx, userID, s.Now()); err != nil {
			return err
		}

		var gates []models.UserGate
		if err := withObjectives(tx).
			Where("external_user_id = ?", userID).
			Where("(status IN ? OR (status = ? AND claimed_at IS NULL))",
				[]models.GateStatus{models.GateAvailable, models.GateActive}, models.GateCompleted).
			Order("spawned_at ASC").
			Find(&gates).Error; err != nil {
			return fmt.Errorf("list gates for %s: %w", userID, err)
		}
		for _, g := range gates {
			switch g.Status {
			case models.GateAvailable:
				board.Available = append(board.Available, g)
			case models.GateActive:
				board.Active = append(board.Active, g)
			case models.GateCompleted:
				board.CompletedUnclaimed = append(board.CompletedUnclaimed, g)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (s *GateService) GetGate(ctx context.Context, userID, gateID string) (*models.UserGate, error) {
	var gate *models.UserGate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProgress(tx, userID); err != nil {
			return err
		}
		if err := s.expireDue(tx, userID, s.Now()); err != nil {
			return err
		}
		var err error
		gate, err = loadGate(tx, userID, gateID)
		return err
	})
	return gate, err
}

// AcceptGate moves an available gate to active. The spawn-time deadline is kept.
func (s *GateService) AcceptGate(ctx context.Context, userID, gateID string) (*models.UserGate, error) {
	var gate *models.UserGate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProgress(tx, userID); err != nil {
			return err
		}
		now := s.Now()
		if err := s.expireDue(tx, userID, now); err != nil {
			return err
		}
		var err error
		if gate, err = loadGate(tx, userID, gateID); err != nil {
			return err
		}
		if gate.Status != models.GateAvailable {
			return ErrNotAvailable
		}

		var active int64
		if err := tx.Model(&models.UserGate{}).
			Where("external_user_id = ? AND status = ?", userID, models.GateActive).
			Count(&active).Error; err != nil {
			return fmt.Errorf("count active gates for %s: %w", userID, err)
		}
		if active >= int64(s.Settings.MaxActiveGates) {
			return ErrAlreadyHasActiveInstance
		}

		gate.Status = models.GateActive
		gate.AcceptedAt = &now
		if err := saveGate(tx, gate); err != nil {
			return err
		}
		slog.Info("Gate accepted", "user_id", userID, "gate_id", gate.ID, "gate_code", gate.GateCode)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gate, nil
}

// AbandonGate forfeits an active gate and frees its slot.
func (s *GateService) AbandonGate(ctx context.Context, userID, gateID string) (*models.UserGate, error) {
	var gate *models.UserGate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProgress(tx, userID); err != nil {
			return err
		}
		now := s.Now()
		if err := s.expireDue(tx, userID, now); err != nil {
			return err
		}
		var err error
		if gate, err = loadGate(tx, userID, gateID); err != nil {
			return err
		}
		if gate.Status != models.GateActive {
			return ErrNotActive
		}
		resolveGate(gate, models.GateAbandoned, now)
		if err := saveGate(tx, gate); err != nil {
			return err
		}
		slog.Info("Gate abandoned", "user_id", userID, "gate_id", gate.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gate, nil
}

// ClaimGate applies a completed gate's reward exactly once. A repeated claim
// returns the stored reward together with ErrAlreadyClaimed.
func (s *GateService) ClaimGate(ctx context.Context, userID, gateID string) (*models.RewardResult, error) {
	var result *models.RewardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}
		now := s.Now()
		if err := s.expireDue(tx, userID, now); err != nil {
			return err
		}
		gate, err := loadGate(tx, userID, gateID)
		if err != nil {
			return err
		}

		reward, breakdown := GateReward(gate)
		if gate.ClaimedAt != nil {
			result = &models.RewardResult{
				XPAwarded:      gate.RewardXP,
				Breakdown:      breakdown,
				AlreadyClaimed: true,
				Level:          levelChange(prog.Level, prog.Rank, prog, 0),
			}
			return ErrAlreadyClaimed
		}
		if gate.Status != models.GateCompleted {
			return ErrNotCompleted
		}

		gate.ClaimedAt = &now
		gate.RewardXP = reward
		if err := saveGate(tx, gate); err != nil {
			return err
		}

		prevLevel, prevRank := prog.Level, prog.Rank
		prog.GatesCleared++
		if _, err := s.Ledger.AwardXP(tx, prog, reward, "gate_"+gate.GateCode); err != nil {
			return err
		}
		unlocked, achXP, err := s.Achievements.Detect(tx, prog)
		if err != nil {
			return err
		}
		result = &models.RewardResult{
			XPAwarded:            reward,
			Breakdown:            breakdown,
			Level:                levelChange(prevLevel, prevRank, prog, reward+achXP),
			AchievementsUnlocked: unlocked,
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadyClaimed) {
		return nil, err
	}
	return result, err
}

// ForceSpawn is the operator spawn: it skips the chance roll but keeps the
// level, open-slot and open-gate limits.
func (s *GateService) ForceSpawn(ctx context.Context, userID string, opts ForceSpawnOptions) (*models.UserGate, error) {
	if opts.Rank != "" && !opts.Rank.IsValid() {
		return nil, ErrUnknownGateRank
	}
	if opts.GateCode != "" {
		if _, ok := s.Catalog.Gate(opts.GateCode); !ok {
			return nil, ErrUnknownGate
		}
	}
	var gate *models.UserGate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}
		now := s.Now()
		if err := s.expireDue(tx, userID, now); err != nil {
			return err
		}
		gate, err = s.spawn(tx, prog, now, opts)
		if err != nil {
			return err
		}
		if gate == nil {
			return ErrNoEligibleGate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gate, nil
}

// maybeSpawn rolls SpawnChance and, on success, spawns one gate. It never
// fails the caller over a lost spawn race.
func (s *GateService) maybeSpawn(tx *gorm.DB, prog *models.UserProgress, now time.Time) (*models.UserGate, error) {
	if s.Rand.Float64() >= s.Settings.SpawnChance {
		return nil, nil
	}
	gate, err := s.spawn(tx, prog, now, ForceSpawnOptions{})
	if errors.Is(err, ErrDuplicateSpawn) {
		slog.Warn("Gate spawn lost a race, skipping", "user_id", prog.ExternalUserID)
		return nil, nil
	}
	return gate, err
}

func (s *GateService) spawn(tx *gorm.DB, prog *models.UserProgress, now time.Time, opts ForceSpawnOptions) (*models.UserGate, error) {
	var openCodes []string
	if err := tx.Model(&models.UserGate{}).
		Where("external_user_id = ? AND status IN ?", prog.ExternalUserID,
			[]models.GateStatus{models.GateAvailable, models.GateActive}).
		Pluck("gate_code", &openCodes).Error; err != nil {
		return nil, fmt.Errorf("load open gates for %s: %w", prog.ExternalUserID, err)
	}
	if len(openCodes) >= s.Settings.MaxOpenGates {
		return nil, nil
	}
	open := make(map[string]bool, len(openCodes))
	for _, c := range openCodes {
		open[c] = true
	}

	defs := s.Catalog.Gates
	if opts.GateCode != "" {
		def, ok := s.Catalog.Gate(opts.GateCode)
		if !ok {
			return nil, ErrUnknownGate
		}
		defs = []models.GateDefinition{*def}
	}
	decision, ok := SelectGateSpawn(defs, prog.Level, open, s.Rand, SpawnParams{
		RareChance:          s.Settings.RareChance,
		StretchChance:       s.Settings.StretchChance,
		StretchBonusPercent: s.Settings.StretchBonusPercent,
		ForceRank:           opts.Rank,
		ForceRare:           opts.Rare,
		ForceStretch:        opts.Stretch,
	})
	if !ok {
		return nil, nil
	}

	gate := MaterializeGate(prog.ExternalUserID, decision, now, s.Catalog.Version)
	// Savepoint, so a unique violation on open_slot leaves the outer
	// transaction usable.
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(gate).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateSpawn
	}
	if err != nil {
		return nil, fmt.Errorf("spawn gate %s for %s: %w", decision.Definition.Code, prog.ExternalUserID, err)
	}
	slog.Info("Gate spawned",
		"user_id", prog.ExternalUserID,
		"gate_id", gate.ID,
		"gate_code", gate.GateCode,
		"rank", string(gate.Rank),
		"rare", gate.IsRareGate,
		"stretch", gate.IsStretch,
	)
	return gate, nil
}

// expireDue resolves every unresolved gate of the user whose deadline has
// passed: available gates expire, active ones fail if any objective moved and
// expire otherwise.
func (s *GateService) expireDue(tx *gorm.DB, userID string, now time.Time) error {
	var due []models.UserGate
	if err := withObjectives(tx).
		Where("external_user_id = ? AND status IN ? AND expires_at < ?", userID,
			[]models.GateStatus{models.GateAvailable, models.GateActive}, now).
		Find(&due).Error; err != nil {
		return fmt.Errorf("load due gates for %s: %w", userID, err)
	}
	for i := range due {
		g := &due[i]
		status := models.GateExpired
		if g.Status == models.GateActive && anyProgress(g.Objectives) {
			status = models.GateFailed
		}
		resolveGate(g, status, now)
		if err := saveGate(tx, g); err != nil {
			return err
		}
		slog.Info("Gate resolved on deadline", "user_id", userID, "gate_id", g.ID, "status", string(status))
	}
	return nil
}

// applyEvent feeds one event into every active gate's objectives.
func (s *GateService) applyEvent(tx *gorm.DB, userID string, totals EventTotals, now time.Time) ([]models.GateAdvance, error) {
	var active []models.UserGate
	if err := withObjectives(tx).
		Where("external_user_id = ? AND status = ?", userID, models.GateActive).
		Find(&active).Error; err != nil {
		return nil, fmt.Errorf("load active gates for %s: %w", userID, err)
	}

	advances := []models.GateAdvance{}
	for i := range active {
		g := &active[i]
		changed := false
		for j := range g.Objectives {
			o := &g.Objectives[j]
			progress := totals.ApplyProgress(o.Type, o.Progress)
			if progress == o.Progress {
				continue
			}
			o.Progress = progress
			if !o.IsCompleted && o.Progress >= o.Target {
				o.IsCompleted = true
				o.CompletedAt = &now
			}
			if err := tx.Save(o).Error; err != nil {
				return nil, fmt.Errorf("save gate objective %s: %w", o.ID, err)
			}
			changed = true
		}
		if !changed {
			continue
		}

		nowCompleted := false
		if objectivesMet(g.Objectives) {
			resolveGate(g, models.GateCompleted, now)
			g.CompletedAt = &now
			if err := saveGate(tx, g); err != nil {
				return nil, err
			}
			nowCompleted = true
			slog.Info("Gate cleared", "user_id", userID, "gate_id", g.ID, "gate_code", g.GateCode)
		}
		advances = append(advances, models.GateAdvance{
			GateID:       g.ID,
			GateCode:     g.GateCode,
			Status:       g.Status,
			NowCompleted: nowCompleted,
		})
	}
	return advances, nil
}

func withObjectives(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Objectives", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func loadGate(tx *gorm.DB, userID, gateID string) (*models.UserGate, error) {
	if _, err := uuid.Parse(gateID); err != nil {
		return nil, ErrGateNotFound
	}
	var gate models.UserGate
	err := withObjectives(tx).
		Where("id = ? AND external_user_id = ?", gateID, userID).
		First(&gate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load gate %s: %w", gateID, err)
	}
	return &gate, nil
}

// saveGate writes the gate row only; objectives are saved individually.
func saveGate(tx *gorm.DB, g *models.UserGate) error {
	if err := tx.Omit(clause.Associations).Save(g).Error; err != nil {
		return fmt.Errorf("save gate %s: %w", g.ID, err)
	}
	return nil
}

// resolveGate moves g out of the unresolved set, releasing its open slot.
func resolveGate(g *models.UserGate, status models.GateStatus, now time.Time) {
	g.Status = status
	g.ResolvedAt = &now
	g.OpenSlot = nil
}

func anyProgress(objs []models.UserGateObjective) bool {
	for _, o := range objs {
		if o.Progress > 0 {
			return true
		}
	}
	return false
}
