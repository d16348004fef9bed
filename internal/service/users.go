package service

import (
	"context"
	"errors"
	"fmt"

	"gods_arena/internal/model"
	"gods_arena/internal/repository"
)

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) RegisterUser(ctx context.Context, user *model.User) error {
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
