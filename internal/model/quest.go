package model

import (
	"time"

	"github.com/google/uuid"
)

type QuestType string

const (
	QuestTypeDaily     QuestType = "daily"
	QuestTypeWeekly    QuestType = "weekly"
	QuestTypePermanent QuestType = "permanent"
)

type Quest struct {
	QuestID        uuid.UUID
	QuestType      QuestType
	Title          string
	Description    string
	ObjectiveValue int
	RewardFavor    int
	RewardEssence  int
	IsActive       bool
	CreatedAt      time.Time
}

type UserQuest struct {
	ID             uuid.UUID
	UserTelegramID int64
	QuestID        uuid.UUID
	Progress       int
	IsCompleted    bool
	IsClaimed      bool
	StartedAt      time.Time
	ClaimedAt      *time.Time
}

// QuestBoard is what the quest page renders: the rotated daily/weekly sets,
// the always-on permanent quests, and the caller's progress rows.
type QuestBoard struct {
	Daily     []*Quest
	Weekly    []*Quest
	Permanent []*Quest
	Progress  []*UserQuest
}

type ClaimResult struct {
	RewardFavor    int
	RewardEssence  int
	BalanceFavor   int
	BalanceEssence int
}
