package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"gods_arena/internal/model"
	"gods_arena/internal/repository"

	"github.com/google/uuid"
)

const (
	dailyWindow  = 24 * time.Hour
	weeklyWindow = 7 * 24 * time.Hour

	activeQuestsPerType = 3
)

type QuestService struct {
	repo QuestRepository
	now  func() time.Time
}

func NewQuestService(repo QuestRepository) *QuestService {
	return &QuestService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// GetBoard rotates the daily and weekly quest sets if their window has
// passed, then returns the active catalogs together with the caller's
// progress rows.
func (s *QuestService) GetBoard(ctx context.Context, telegramID int64) (*model.QuestBoard, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user, err = s.rotate(ctx, user, model.QuestTypeDaily, dailyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate daily quests: %w", err)
	}
	user, err = s.rotate(ctx, user, model.QuestTypeWeekly, weeklyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate weekly quests: %w", err)
	}

	daily, err := s.repo.GetQuestsByIDs(ctx, user.ActiveDailyQuestIDs)
	if err != nil {
		return nil, err
	}
	weekly, err := s.repo.GetQuestsByIDs(ctx, user.ActiveWeeklyQuestIDs)
	if err != nil {
		return nil, err
	}
	permanent, err := s.repo.GetActiveQuestsByType(ctx, model.QuestTypePermanent)
	if err != nil {
		return nil, err
	}
	progress, err := s.repo.GetUserQuestsByUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	return &model.QuestBoard{
		Daily:     daily,
		Weekly:    weekly,
		Permanent: permanent,
		Progress:  progress,
	}, nil
}

// rotate redraws the active set for one cadence when its window has passed
// (or the user has never had a set). The draw is seeded from the user, the
// cadence and the window start, so two concurrent page loads compute the
// same set and the unsynchronized write race degenerates to writing
// identical data.
func (s *QuestService) rotate(ctx context.Context, user *model.User, questType model.QuestType, window time.Duration) (*model.User, error) {
	pool, err := s.repo.GetActiveQuestsByType(ctx, questType)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		now := s.now()
		active, lastReset := user.ActiveDailyQuestIDs, user.LastDailyQuestReset
		if questType == model.QuestTypeWeekly {
			active, lastReset = user.ActiveWeeklyQuestIDs, user.LastWeeklyQuestReset
		}

		if len(pool) == 0 {
			if len(active) == 0 {
				return user, nil
			}
			// Catalog emptied mid-window: clear the stale set but keep the
			// reset timestamp.
			err = s.repo.UpdateQuestRotation(ctx, user.TelegramID, questType, nil, nil, user.Version)
			if err == nil {
				return s.applyRotation(user, questType, nil, lastReset), nil
			}
		} else {
			due := lastReset == nil || now.Sub(*lastReset) >= window || len(active) == 0
			if !due {
				return user, nil
			}

			ids := drawQuestIDs(pool, rotationSeed(user.TelegramID, questType, now.Truncate(window)), activeQuestsPerType)
			err = s.repo.UpdateQuestRotation(ctx, user.TelegramID, questType, ids, &now, user.Version)
			if err == nil {
				return s.applyRotation(user, questType, ids, &now), nil
			}
		}

		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}

		user, err = s.repo.GetUserByTelegramID(ctx, user.TelegramID)
		if err != nil {
			return nil, err
		}
	}

	return nil, repository.ErrVersionConflict
}

func (s *QuestService) applyRotation(user *model.User, questType model.QuestType, ids []uuid.UUID, resetAt *time.Time) *model.User {
	updated := *user
	updated.Version++
	if questType == model.QuestTypeWeekly {
		updated.ActiveWeeklyQuestIDs = ids
		updated.LastWeeklyQuestReset = resetAt
	} else {
		updated.ActiveDailyQuestIDs = ids
		updated.LastDailyQuestReset = resetAt
	}
	return &updated
}

func rotationSeed(telegramID int64, questType model.QuestType, windowStart time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s:%d", telegramID, questType, windowStart.Unix())
	return int64(h.Sum64())
}

// drawQuestIDs is a seeded Fisher–Yates draw of up to n quest ids from the
// pool.
func drawQuestIDs(pool []*model.Quest, seed int64, n int) []uuid.UUID {
	ids := make([]uuid.UUID, len(pool))
	for i, q := range pool {
		ids[i] = q.QuestID
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

// ClaimReward credits a completed quest's reward exactly once. All
// preconditions are checked before anything is written; the credit and the
// claim flag land in one repository transaction.
func (s *QuestService) ClaimReward(ctx context.Context, telegramID int64, userQuestID uuid.UUID) (*model.ClaimResult, error) {
	userQuest, err := s.repo.GetUserQuest(ctx, userQuestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserQuestNotFound
		}
		return nil, err
	}

	if userQuest.UserTelegramID != telegramID {
		return nil, ErrQuestNotYours
	}
	if !userQuest.IsCompleted {
		return nil, ErrQuestNotCompleted
	}
	if userQuest.IsClaimed {
		return nil, ErrQuestAlreadyClaimed
	}

	quest, err := s.repo.GetQuestByID(ctx, userQuest.QuestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}

	balanceFavor, balanceEssence, err := s.repo.ClaimQuestReward(
		ctx, userQuestID, telegramID, quest.RewardFavor, quest.RewardEssence)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			return nil, ErrQuestAlreadyClaimed
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to claim quest reward: %w", err)
		}
	}

	return &model.ClaimResult{
		RewardFavor:    quest.RewardFavor,
		RewardEssence:  quest.RewardEssence,
		BalanceFavor:   balanceFavor,
		BalanceEssence: balanceEssence,
	}, nil
}

func (s *QuestService) CreateQuest(ctx context.Context, quest *model.Quest) (uuid.UUID, error) {
	if quest.QuestID == uuid.Nil {
		quest.QuestID = uuid.New()
	}
	if quest.CreatedAt.IsZero() {
		quest.CreatedAt = s.now()
	}

	if err := s.repo.CreateQuest(ctx, quest); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create quest: %w", err)
	}

	return quest.QuestID, nil
}

func (s *QuestService) DeleteQuest(ctx context.Context, questID uuid.UUID) error {
	err := s.repo.DeleteQuest(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestNotFound
		}
		return err
	}
	return nil
}
