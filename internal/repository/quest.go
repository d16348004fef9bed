package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gods_arena/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Quest struct {
	QuestID        uuid.UUID `db:"quest_id"`
	QuestType      string    `db:"quest_type"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	ObjectiveValue int       `db:"objective_value"`
	RewardFavor    int       `db:"reward_favor"`
	RewardEssence  int       `db:"reward_essence"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

type UserQuest struct {
	ID             uuid.UUID  `db:"id"`
	UserTelegramID int64      `db:"user_telegram_id"`
	QuestID        uuid.UUID  `db:"quest_id"`
	Progress       int        `db:"progress"`
	IsCompleted    bool       `db:"is_completed"`
	IsClaimed      bool       `db:"is_claimed"`
	StartedAt      time.Time  `db:"started_at"`
	ClaimedAt      *time.Time `db:"claimed_at"`
}

var questColumns = []string{
	"quest_id", "quest_type", "title", "description",
	"objective_value", "reward_favor", "reward_essence",
	"is_active", "created_at",
}

func (q *Quest) toModel() *model.Quest {
	return &model.Quest{
		QuestID:        q.QuestID,
		QuestType:      model.QuestType(q.QuestType),
		Title:          q.Title,
		Description:    q.Description,
		ObjectiveValue: q.ObjectiveValue,
		RewardFavor:    q.RewardFavor,
		RewardEssence:  q.RewardEssence,
		IsActive:       q.IsActive,
		CreatedAt:      q.CreatedAt,
	}
}

func (uq *UserQuest) toModel() *model.UserQuest {
	return &model.UserQuest{
		ID:             uq.ID,
		UserTelegramID: uq.UserTelegramID,
		QuestID:        uq.QuestID,
		Progress:       uq.Progress,
		IsCompleted:    uq.IsCompleted,
		IsClaimed:      uq.IsClaimed,
		StartedAt:      uq.StartedAt,
		ClaimedAt:      uq.ClaimedAt,
	}
}

func (r *Repository) GetActiveQuestsByType(ctx context.Context, questType model.QuestType) ([]*model.Quest, error) {
	query, args, err := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"quest_type": string(questType), "is_active": true}).
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*Quest
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	quests := make([]*model.Quest, len(rows))
	for i, q := range rows {
		quests[i] = q.toModel()
	}

	return quests, nil
}

func (r *Repository) GetQuestsByIDs(ctx context.Context, questIDs []uuid.UUID) ([]*model.Quest, error) {
	if len(questIDs) == 0 {
		return []*model.Quest{}, nil
	}

	query, args, err := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"quest_id": questIDs}).
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*Quest
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	quests := make([]*model.Quest, len(rows))
	for i, q := range rows {
		quests[i] = q.toModel()
	}

	return quests, nil
}

func (r *Repository) GetQuestByID(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	query, args, err := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"quest_id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var quest Quest
	err = r.db.GetContext(ctx, &quest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return quest.toModel(), nil
}

func (r *Repository) GetUserQuest(ctx context.Context, userQuestID uuid.UUID) (*model.UserQuest, error) {
	query, args, err := squirrel.
		Select("id", "user_telegram_id", "quest_id", "progress",
			"is_completed", "is_claimed", "started_at", "claimed_at").
		From("user_quests").
		Where(squirrel.Eq{"id": userQuestID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var userQuest UserQuest
	err = r.db.GetContext(ctx, &userQuest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return userQuest.toModel(), nil
}

func (r *Repository) GetUserQuestsByUser(ctx context.Context, telegramID int64) ([]*model.UserQuest, error) {
	query, args, err := squirrel.
		Select("id", "user_telegram_id", "quest_id", "progress",
			"is_completed", "is_claimed", "started_at", "claimed_at").
		From("user_quests").
		Where(squirrel.Eq{"user_telegram_id": telegramID}).
		OrderBy("started_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*UserQuest
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	userQuests := make([]*model.UserQuest, len(rows))
	for i, uq := range rows {
		userQuests[i] = uq.toModel()
	}

	return userQuests, nil
}

// ClaimQuestReward flips the claim flag and credits the reward in one
// transaction, so a crash cannot credit currency while leaving the quest
// claimable. The flag update doubles as the claim-once gate.
func (r *Repository) ClaimQuestReward(ctx context.Context, userQuestID uuid.UUID, telegramID int64, favor, essence int) (int, int, error) {
	var balanceFavor, balanceEssence int

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		claimQuery, claimArgs, err := squirrel.
			Update("user_quests").
			SetMap(map[string]interface{}{
				"is_claimed": true,
				"claimed_at": time.Now().UTC(),
			}).
			Where(squirrel.Eq{"id": userQuestID, "is_claimed": false}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build claim update query: %w", err)
		}

		result, err := tx.ExecContext(ctx, claimQuery, claimArgs...)
		if err != nil {
			return fmt.Errorf("failed to mark quest claimed: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyClaimed
		}

		creditQuery, creditArgs, err := squirrel.
			Update("users").
			Set("favor_tokens", squirrel.Expr("favor_tokens + ?", favor)).
			Set("essence_crystals", squirrel.Expr("essence_crystals + ?", essence)).
			Set("version", squirrel.Expr("version + 1")).
			Where(squirrel.Eq{"telegram_id": telegramID}).
			Suffix("RETURNING favor_tokens, essence_crystals").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build credit query: %w", err)
		}

		row := tx.QueryRowContext(ctx, creditQuery, creditArgs...)
		if err := row.Scan(&balanceFavor, &balanceEssence); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to credit quest reward: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return balanceFavor, balanceEssence, nil
}

func (r *Repository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	query, args, err := squirrel.
		Insert("quests").
		SetMap(map[string]interface{}{
			"quest_id":        quest.QuestID,
			"quest_type":      string(quest.QuestType),
			"title":           quest.Title,
			"description":     quest.Description,
			"objective_value": quest.ObjectiveValue,
			"reward_favor":    quest.RewardFavor,
			"reward_essence":  quest.RewardEssence,
			"is_active":       quest.IsActive,
			"created_at":      quest.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert quest: %w", err)
	}

	return nil
}

func (r *Repository) DeleteQuest(ctx context.Context, questID uuid.UUID) error {
	query, args, err := squirrel.
		Delete("quests").
		Where(squirrel.Eq{"quest_id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
