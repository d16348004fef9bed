package service

import (
	"context"
	"testing"
	"time"

	"gods_arena/internal/model"
	"gods_arena/internal/repository"
	"gods_arena/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func questPool(questType model.QuestType, n int) []*model.Quest {
	pool := make([]*model.Quest, n)
	for i := range pool {
		pool[i] = &model.Quest{
			QuestID:   uuid.New(),
			QuestType: questType,
			IsActive:  true,
		}
	}
	return pool
}

func poolContains(pool []*model.Quest, id uuid.UUID) bool {
	for _, q := range pool {
		if q.QuestID == id {
			return true
		}
	}
	return false
}

func TestQuestService_GetBoard_RotatesWhenDue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	dailyPool := questPool(model.QuestTypeDaily, 5)

	mockRepo := &mocks.MockQuestRepository{}
	s := NewQuestService(mockRepo)
	s.now = func() time.Time { return now }

	user := &model.User{TelegramID: 123, Version: 1}

	mockRepo.On("GetUserByTelegramID", mock.Anything, int64(123)).Return(user, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypeDaily).Return(dailyPool, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypeWeekly).Return([]*model.Quest{}, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypePermanent).Return([]*model.Quest{}, nil)

	var drawn []uuid.UUID
	mockRepo.On("UpdateQuestRotation", mock.Anything, int64(123), model.QuestTypeDaily,
		mock.MatchedBy(func(ids []uuid.UUID) bool {
			drawn = ids
			if len(ids) != 3 {
				return false
			}
			for _, id := range ids {
				if !poolContains(dailyPool, id) {
					return false
				}
			}
			return true
		}), mock.MatchedBy(func(resetAt *time.Time) bool {
			return resetAt != nil && resetAt.Equal(now)
		}), 1).Return(nil).Once()

	mockRepo.On("GetQuestsByIDs", mock.Anything, mock.Anything).Return([]*model.Quest{}, nil)
	mockRepo.On("GetUserQuestsByUser", mock.Anything, int64(123)).Return([]*model.UserQuest{}, nil)

	_, err := s.GetBoard(context.Background(), 123)

	assert.NoError(t, err)
	assert.Len(t, drawn, 3)
	mockRepo.AssertExpectations(t)
	// Weekly pool was empty and the user had no weekly set: nothing written.
	mockRepo.AssertNotCalled(t, "UpdateQuestRotation",
		mock.Anything, mock.Anything, model.QuestTypeWeekly, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuestService_GetBoard_NoRotationWithinWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	dailyReset := now.Add(-1 * time.Hour)
	weeklyReset := now.Add(-24 * time.Hour)
	dailyPool := questPool(model.QuestTypeDaily, 5)
	weeklyPool := questPool(model.QuestTypeWeekly, 4)

	dailyIDs := []uuid.UUID{dailyPool[0].QuestID, dailyPool[1].QuestID, dailyPool[2].QuestID}
	weeklyIDs := []uuid.UUID{weeklyPool[0].QuestID, weeklyPool[1].QuestID, weeklyPool[2].QuestID}

	mockRepo := &mocks.MockQuestRepository{}
	s := NewQuestService(mockRepo)
	s.now = func() time.Time { return now }

	user := &model.User{
		TelegramID:           123,
		ActiveDailyQuestIDs:  dailyIDs,
		ActiveWeeklyQuestIDs: weeklyIDs,
		LastDailyQuestReset:  &dailyReset,
		LastWeeklyQuestReset: &weeklyReset,
	}

	mockRepo.On("GetUserByTelegramID", mock.Anything, int64(123)).Return(user, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypeDaily).Return(dailyPool, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypeWeekly).Return(weeklyPool, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypePermanent).Return([]*model.Quest{}, nil)
	mockRepo.On("GetQuestsByIDs", mock.Anything, dailyIDs).Return(dailyPool[:3], nil)
	mockRepo.On("GetQuestsByIDs", mock.Anything, weeklyIDs).Return(weeklyPool[:3], nil)
	mockRepo.On("GetUserQuestsByUser", mock.Anything, int64(123)).Return([]*model.UserQuest{}, nil)

	board, err := s.GetBoard(context.Background(), 123)

	assert.NoError(t, err)
	assert.Len(t, board.Daily, 3)
	assert.Len(t, board.Weekly, 3)
	mockRepo.AssertNotCalled(t, "UpdateQuestRotation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuestService_GetBoard_EmptyPoolClearsStaleSet(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	dailyReset := now.Add(-1 * time.Hour)

	mockRepo := &mocks.MockQuestRepository{}
	s := NewQuestService(mockRepo)
	s.now = func() time.Time { return now }

	staleIDs := []uuid.UUID{uuid.New(), uuid.New()}
	user := &model.User{
		TelegramID:          123,
		ActiveDailyQuestIDs: staleIDs,
		LastDailyQuestReset: &dailyReset,
		Version:             5,
	}

	mockRepo.On("GetUserByTelegramID", mock.Anything, int64(123)).Return(user, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypeDaily).Return([]*model.Quest{}, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypeWeekly).Return([]*model.Quest{}, nil)
	mockRepo.On("GetActiveQuestsByType", mock.Anything, model.QuestTypePermanent).Return([]*model.Quest{}, nil)

	// Stale daily set cleared without touching the reset timestamp.
	mockRepo.On("UpdateQuestRotation", mock.Anything, int64(123), model.QuestTypeDaily,
		[]uuid.UUID(nil), (*time.Time)(nil), 5).Return(nil).Once()

	mockRepo.On("GetQuestsByIDs", mock.Anything, mock.Anything).Return([]*model.Quest{}, nil)
	mockRepo.On("GetUserQuestsByUser", mock.Anything, int64(123)).Return([]*model.UserQuest{}, nil)

	_, err := s.GetBoard(context.Background(), 123)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestDrawQuestIDs_Deterministic(t *testing.T) {
	pool := questPool(model.QuestTypeDaily, 5)
	seed := rotationSeed(123, model.QuestTypeDaily, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	first := drawQuestIDs(pool, seed, 3)
	second := drawQuestIDs(pool, seed, 3)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
	for _, id := range first {
		assert.True(t, poolContains(pool, id))
	}

	// Smaller pool than the draw size yields the whole pool.
	small := questPool(model.QuestTypeDaily, 2)
	assert.Len(t, drawQuestIDs(small, seed, 3), 2)
}

func TestQuestService_ClaimReward(t *testing.T) {
	userQuestID := uuid.New()
	questID := uuid.New()

	completedQuest := func() *model.UserQuest {
		return &model.UserQuest{
			ID:             userQuestID,
			UserTelegramID: 123,
			QuestID:        questID,
			Progress:       10,
			IsCompleted:    true,
		}
	}

	tests := []struct {
		name           string
		telegramID     int64
		mockSetup      func(repo *mocks.MockQuestRepository)
		expectedError  error
		expectedResult *model.ClaimResult
		claimAttempted bool
	}{
		{
			name:       "User quest not found",
			telegramID: 123,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				repo.On("GetUserQuest", mock.Anything, userQuestID).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserQuestNotFound,
		},
		{
			name:       "Quest belongs to somebody else",
			telegramID: 999,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				repo.On("GetUserQuest", mock.Anything, userQuestID).
					Return(completedQuest(), nil)
			},
			expectedError: ErrQuestNotYours,
		},
		{
			name:       "Quest not completed",
			telegramID: 123,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				uq := completedQuest()
				uq.IsCompleted = false
				uq.Progress = 4
				repo.On("GetUserQuest", mock.Anything, userQuestID).Return(uq, nil)
			},
			expectedError: ErrQuestNotCompleted,
		},
		{
			name:       "Already claimed",
			telegramID: 123,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				uq := completedQuest()
				uq.IsClaimed = true
				repo.On("GetUserQuest", mock.Anything, userQuestID).Return(uq, nil)
			},
			expectedError: ErrQuestAlreadyClaimed,
		},
		{
			name:       "Parent quest removed from catalog",
			telegramID: 123,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				repo.On("GetUserQuest", mock.Anything, userQuestID).
					Return(completedQuest(), nil)
				repo.On("GetQuestByID", mock.Anything, questID).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrQuestNotFound,
		},
		{
			name:       "Lost the claim race",
			telegramID: 123,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				repo.On("GetUserQuest", mock.Anything, userQuestID).
					Return(completedQuest(), nil)
				repo.On("GetQuestByID", mock.Anything, questID).
					Return(&model.Quest{QuestID: questID, RewardFavor: 100, RewardEssence: 50}, nil)
				repo.On("ClaimQuestReward", mock.Anything, userQuestID, int64(123), 100, 50).
					Return(0, 0, repository.ErrAlreadyClaimed)
			},
			expectedError:  ErrQuestAlreadyClaimed,
			claimAttempted: true,
		},
		{
			name:       "Successful claim credits once",
			telegramID: 123,
			mockSetup: func(repo *mocks.MockQuestRepository) {
				repo.On("GetUserQuest", mock.Anything, userQuestID).
					Return(completedQuest(), nil)
				repo.On("GetQuestByID", mock.Anything, questID).
					Return(&model.Quest{QuestID: questID, RewardFavor: 100, RewardEssence: 50}, nil)
				repo.On("ClaimQuestReward", mock.Anything, userQuestID, int64(123), 100, 50).
					Return(350, 80, nil)
			},
			expectedResult: &model.ClaimResult{
				RewardFavor:    100,
				RewardEssence:  50,
				BalanceFavor:   350,
				BalanceEssence: 80,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockQuestRepository{}
			tt.mockSetup(mockRepo)

			result, err := NewQuestService(mockRepo).ClaimReward(context.Background(), tt.telegramID, userQuestID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				if !tt.claimAttempted {
					// Failed preconditions must not reach the credit path.
					mockRepo.AssertNotCalled(t, "ClaimQuestReward",
						mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				}
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedResult, result)
			mockRepo.AssertExpectations(t)
		})
	}
}
