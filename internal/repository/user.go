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
	"github.com/lib/pq"
)

type User struct {
	TelegramID           int64          `db:"telegram_id"`
	Username             string         `db:"username"`
	IsAdmin              bool           `db:"is_admin"`
	Lives                int            `db:"lives"`
	LivesMax             int            `db:"lives_max"`
	LastLifeRecovery     *time.Time     `db:"last_life_recovery"`
	FavorTokens          int            `db:"favor_tokens"`
	EssenceCrystals      int            `db:"essence_crystals"`
	OwnedCosmetics       pq.StringArray `db:"owned_cosmetics"`
	ActiveDailyQuestIDs  pq.StringArray `db:"active_daily_quest_ids"`
	ActiveWeeklyQuestIDs pq.StringArray `db:"active_weekly_quest_ids"`
	LastDailyQuestReset  *time.Time     `db:"last_daily_quest_reset"`
	LastWeeklyQuestReset *time.Time     `db:"last_weekly_quest_reset"`
	Version              int            `db:"version"`
	RegistrationDate     time.Time      `db:"registration_date"`
	AuthDate             time.Time      `db:"last_auth_date"`
}

var userColumns = []string{
	"telegram_id", "username", "is_admin",
	"lives", "lives_max", "last_life_recovery",
	"favor_tokens", "essence_crystals", "owned_cosmetics",
	"active_daily_quest_ids", "active_weekly_quest_ids",
	"last_daily_quest_reset", "last_weekly_quest_reset",
	"version", "registration_date", "last_auth_date",
}

func (u *User) toModel() (*model.User, error) {
	cosmetics, err := parseUUIDs(u.OwnedCosmetics)
	if err != nil {
		return nil, fmt.Errorf("bad owned_cosmetics: %w", err)
	}
	daily, err := parseUUIDs(u.ActiveDailyQuestIDs)
	if err != nil {
		return nil, fmt.Errorf("bad active_daily_quest_ids: %w", err)
	}
	weekly, err := parseUUIDs(u.ActiveWeeklyQuestIDs)
	if err != nil {
		return nil, fmt.Errorf("bad active_weekly_quest_ids: %w", err)
	}

	return &model.User{
		TelegramID:           u.TelegramID,
		Username:             u.Username,
		IsAdmin:              u.IsAdmin,
		Lives:                u.Lives,
		LivesMax:             u.LivesMax,
		LastLifeRecovery:     u.LastLifeRecovery,
		FavorTokens:          u.FavorTokens,
		EssenceCrystals:      u.EssenceCrystals,
		OwnedCosmetics:       cosmetics,
		ActiveDailyQuestIDs:  daily,
		ActiveWeeklyQuestIDs: weekly,
		LastDailyQuestReset:  u.LastDailyQuestReset,
		LastWeeklyQuestReset: u.LastWeeklyQuestReset,
		Version:              u.Version,
		RegistrationDate:     u.RegistrationDate,
		AuthDate:             u.AuthDate,
	}, nil
}

func parseUUIDs(raw pq.StringArray) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func formatUUIDs(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// UpsertUser registers the user on first login and refreshes the username
// and auth date on every later one.
func (r *Repository) UpsertUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id":       user.TelegramID,
			"username":          user.Username,
			"registration_date": user.RegistrationDate,
			"last_auth_date":    user.AuthDate,
		}).
		Suffix(`ON CONFLICT (telegram_id) DO UPDATE
			SET username = EXCLUDED.username,
			    last_auth_date = EXCLUDED.last_auth_date`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user upsert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel()
}

// UpdateUserLives writes the recovered life count and the advanced recovery
// anchor. The write is guarded by the version the caller read; zero affected
// rows means a concurrent writer got there first.
func (r *Repository) UpdateUserLives(ctx context.Context, telegramID int64, lives int, lastRecovery time.Time, version int) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"lives":              lives,
			"last_life_recovery": lastRecovery,
		}).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"telegram_id": telegramID, "version": version}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	return r.execGuarded(ctx, query, args)
}

// UpdateQuestRotation replaces the active quest id list for one cadence. A
// nil resetAt leaves the reset timestamp untouched (the empty-pool case).
func (r *Repository) UpdateQuestRotation(ctx context.Context, telegramID int64, questType model.QuestType, questIDs []uuid.UUID, resetAt *time.Time, version int) error {
	idColumn, resetColumn := "active_daily_quest_ids", "last_daily_quest_reset"
	if questType == model.QuestTypeWeekly {
		idColumn, resetColumn = "active_weekly_quest_ids", "last_weekly_quest_reset"
	}

	builder := squirrel.
		Update("users").
		Set(idColumn, formatUUIDs(questIDs)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"telegram_id": telegramID, "version": version})

	if resetAt != nil {
		builder = builder.Set(resetColumn, *resetAt)
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}

	return r.execGuarded(ctx, query, args)
}

func (r *Repository) execGuarded(ctx context.Context, query string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	return nil
}
