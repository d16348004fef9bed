package service

import (
	"context"
	"errors"
	"math"
	"time"

	"gods_arena/internal/model"
	"gods_arena/internal/repository"
)

const (
	lifeRecoveryInterval = time.Hour
	defaultMaxLives      = 5
)

type LivesService struct {
	repo LivesRepository
	now  func() time.Time
}

func NewLivesService(repo LivesRepository) *LivesService {
	return &LivesService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Recover applies every whole recovery interval elapsed since the user's
// recovery anchor, clamped to the maximum. The anchor advances by exactly
// the consumed whole intervals, never to now, so the fractional remainder
// keeps counting toward the next life.
func (s *LivesService) Recover(ctx context.Context, telegramID int64) (*model.LivesStatus, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}

		now := s.now()
		status, newAnchor := recoverLives(user, now)
		if status.Recovered == 0 {
			return status, nil
		}

		err = s.repo.UpdateUserLives(ctx, telegramID, status.Lives, newAnchor, user.Version)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		return status, nil
	}

	return nil, repository.ErrVersionConflict
}

func recoverLives(user *model.User, now time.Time) (*model.LivesStatus, time.Time) {
	maxLives := user.LivesMax
	if maxLives <= 0 {
		maxLives = defaultMaxLives
	}
	lives := user.Lives

	anchor := now
	if user.LastLifeRecovery != nil {
		anchor = *user.LastLifeRecovery
	}

	if lives >= maxLives {
		return &model.LivesStatus{Lives: lives, MaxLives: maxLives}, anchor
	}

	elapsed := now.Sub(anchor)
	recovered := int(elapsed / lifeRecoveryInterval)
	if recovered <= 0 {
		return &model.LivesStatus{
			Lives:          lives,
			MaxLives:       maxLives,
			NextRecoveryIn: minutesUntil(lifeRecoveryInterval - elapsed),
		}, anchor
	}

	newLives := lives + recovered
	if newLives > maxLives {
		newLives = maxLives
	}
	newAnchor := anchor.Add(time.Duration(recovered) * lifeRecoveryInterval)

	status := &model.LivesStatus{
		Lives:     newLives,
		MaxLives:  maxLives,
		Recovered: recovered,
	}
	if newLives < maxLives {
		status.NextRecoveryIn = minutesUntil(lifeRecoveryInterval - now.Sub(newAnchor))
	}

	return status, newAnchor
}

func minutesUntil(remaining time.Duration) *int {
	minutes := int(math.Ceil(remaining.Minutes()))
	return &minutes
}
