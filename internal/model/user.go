package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	TelegramID           int64
	Username             string
	IsAdmin              bool
	Lives                int
	LivesMax             int
	LastLifeRecovery     *time.Time
	FavorTokens          int
	EssenceCrystals      int
	OwnedCosmetics       []uuid.UUID
	ActiveDailyQuestIDs  []uuid.UUID
	ActiveWeeklyQuestIDs []uuid.UUID
	LastDailyQuestReset  *time.Time
	LastWeeklyQuestReset *time.Time
	Version              int
	RegistrationDate     time.Time
	AuthDate             time.Time
}

type LivesStatus struct {
	Lives    int
	MaxLives int
	// NextRecoveryIn is minutes until the next life, nil when lives are full.
	NextRecoveryIn *int
	Recovered      int
}
