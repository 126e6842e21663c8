package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"hunter-progression/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyQuestCount is the size of every user's daily quest set.
const DailyQuestCount = 3

type QuestService struct {
	DB           *gorm.DB
	Catalog      *Catalog
	Ledger       *ProgressionService
	Achievements *AchievementService
	Rand         RandSource
	Now          func() time.Time
}

func NewQuestService(db *gorm.DB, catalog *Catalog, ledger *ProgressionService, achievements *AchievementService, rng RandSource) *QuestService {
	return &QuestService{
		DB:           db,
		Catalog:      catalog,
		Ledger:       ledger,
		Achievements: achievements,
		Rand:         rng,
		Now:          utcNow,
	}
}

// GetTodayQuests returns the user's quests for their current local day,
// generating the set on the first access of the day.
func (s *QuestService) GetTodayQuests(ctx context.Context, userID string) ([]models.UserQuest, error) {
	var quests []models.UserQuest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}
		quests, err = s.ensureDailyQuests(tx, prog, s.Now())
		return err
	})
	return quests, err
}

// ClaimQuest grants a completed quest's XP once. A repeated claim returns the
// original reward together with ErrAlreadyClaimed.
func (s *QuestService) ClaimQuest(ctx context.Context, userID, questID string) (*models.RewardResult, error) {
	var result *models.RewardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prog, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}

		if _, err := uuid.Parse(questID); err != nil {
			return ErrQuestNotFound
		}
		var quest models.UserQuest
		err = tx.Where("id = ? AND external_user_id = ?", questID, userID).First(&quest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestNotFound
		}
		if err != nil {
			return fmt.Errorf("load quest %s: %w", questID, err)
		}

		if quest.Claimed {
			result = &models.RewardResult{
				XPAwarded:      quest.XPReward,
				Breakdown:      models.RewardBreakdown{BaseXP: quest.XPReward},
				AlreadyClaimed: true,
				Level:          levelChange(prog.Level, prog.Rank, prog, 0),
			}
			return ErrAlreadyClaimed
		}
		if !quest.Completed {
			return ErrNotCompleted
		}

		now := s.Now()
		quest.Claimed = true
		quest.ClaimedAt = &now
		if err := tx.Save(&quest).Error; err != nil {
			return fmt.Errorf("save quest %s: %w", quest.ID, err)
		}

		prevLevel, prevRank := prog.Level, prog.Rank
		prog.QuestsClaimed++
		if _, err := s.Ledger.AwardXP(tx, prog, quest.XPReward, "quest_"+quest.QuestCode); err != nil {
			return err
		}
		unlocked, achXP, err := s.Achievements.Detect(tx, prog)
		if err != nil {
			return err
		}

		result = &models.RewardResult{
			XPAwarded:            quest.XPReward,
			Breakdown:            models.RewardBreakdown{BaseXP: quest.XPReward},
			Level:                levelChange(prevLevel, prevRank, prog, quest.XPReward+achXP),
			AchievementsUnlocked: unlocked,
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrAlreadyClaimed) {
		return nil, err
	}
	return result, err
}

// ensureDailyQuests returns the quests of prog's local day at now, filling
// any missing slots. Inserts race safely on the (user, date, slot) index.
func (s *QuestService) ensureDailyQuests(tx *gorm.DB, prog *models.UserProgress, now time.Time) ([]models.UserQuest, error) {
	date := prog.LocalDate(now)
	quests, err := loadQuestsForDate(tx, prog.ExternalUserID, date)
	if err != nil || len(quests) >= DailyQuestCount {
		return quests, err
	}

	usedSlots := map[int]bool{}
	usedCodes := map[string]bool{}
	for _, q := range quests {
		usedSlots[q.Slot] = true
		usedCodes[q.QuestCode] = true
	}
	var pool []models.QuestDefinition
	for _, def := range s.Catalog.Quests {
		if !usedCodes[def.Code] {
			pool = append(pool, def)
		}
	}
	picks := pickDailyQuests(pool, DailyQuestCount-len(quests), s.Rand)

	var rows []models.UserQuest
	for slot := 0; slot < DailyQuestCount && len(picks) > 0; slot++ {
		if usedSlots[slot] {
			continue
		}
		def := picks[0]
		picks = picks[1:]
		rows = append(rows, models.UserQuest{
			ExternalUserID: prog.ExternalUserID,
			Date:           date,
			Slot:           slot,
			QuestCode:      def.Code,
			Name:           def.Name,
			Description:    def.Description,
			ObjectiveType:  def.ObjectiveType,
			Difficulty:     def.Difficulty,
			TargetValue:    ScaledQuestTarget(def, prog.Rank),
			XPReward:       def.XPReward,
			CatalogVersion: s.Catalog.Version,
		})
	}
	if len(rows) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return nil, fmt.Errorf("generate quests for %s on %s: %w", prog.ExternalUserID, date, err)
		}
		slog.Info("Daily quests generated", "user_id", prog.ExternalUserID, "date", date, "count", len(rows))
	}
	return loadQuestsForDate(tx, prog.ExternalUserID, date)
}

// applyEvent feeds one event into today's quests.
func (s *QuestService) applyEvent(tx *gorm.DB, prog *models.UserProgress, totals EventTotals, now time.Time) ([]models.QuestAdvance, error) {
	quests, err := s.ensureDailyQuests(tx, prog, now)
	if err != nil {
		return nil, err
	}

	advances := []models.QuestAdvance{}
	for i := range quests {
		q := &quests[i]
		progress := totals.ApplyProgress(q.ObjectiveType, q.Progress)
		if progress == q.Progress {
			continue
		}
		q.Progress = progress
		nowCompleted := false
		if !q.Completed && q.Progress >= q.TargetValue {
			q.Completed = true
			q.CompletedAt = &now
			nowCompleted = true
		}
		if err := tx.Save(q).Error; err != nil {
			return nil, fmt.Errorf("save quest %s: %w", q.ID, err)
		}
		advances = append(advances, models.QuestAdvance{
			QuestID:      q.ID,
			QuestCode:    q.QuestCode,
			Progress:     q.Progress,
			Target:       q.TargetValue,
			NowCompleted: nowCompleted,
		})
	}
	return advances, nil
}

func loadQuestsForDate(tx *gorm.DB, userID, date string) ([]models.UserQuest, error) {
	var quests []models.UserQuest
	if err := tx.Where("external_user_id = ? AND date = ?", userID, date).
		Order("slot ASC").
		Find(&quests).Error; err != nil {
		return nil, fmt.Errorf("load quests for %s on %s: %w", userID, date, err)
	}
	return quests, nil
}

// ScaledQuestTarget grows additive targets with the hunter's rank, rounding up.
func ScaledQuestTarget(def models.QuestDefinition, rank models.Rank) int64 {
	if !def.ObjectiveType.Scales() {
		return def.TargetValue
	}
	return int64(math.Ceil(float64(def.TargetValue) * rank.QuestScale()))
}

// pickDailyQuests draws up to n distinct definitions. When an easy definition
// exists, the first pick is always easy.
func pickDailyQuests(defs []models.QuestDefinition, n int, rng RandSource) []models.QuestDefinition {
	pool := append([]models.QuestDefinition(nil), defs...)
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}

	var easy []int
	for i, d := range pool {
		if d.Difficulty == models.DifficultyEasy {
			easy = append(easy, i)
		}
	}

	picks := make([]models.QuestDefinition, 0, n)
	if len(easy) > 0 {
		i := easy[rng.IntN(len(easy))]
		picks = append(picks, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	// partial Fisher-Yates over the rest
	for len(picks) < n {
		j := rng.IntN(len(pool))
		picks = append(picks, pool[j])
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return picks
}
