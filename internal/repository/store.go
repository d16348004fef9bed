package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gods_arena/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type StorePackage struct {
	PackageID       string         `db:"package_id"`
	Title           string         `db:"title"`
	Price           string         `db:"price"`
	FavorTokens     int            `db:"favor_tokens"`
	EssenceCrystals int            `db:"essence_crystals"`
	BonusCosmetics  pq.StringArray `db:"bonus_cosmetics"`
	IsAvailable     bool           `db:"is_available"`
}

var packageColumns = []string{
	"package_id", "title", "price", "favor_tokens",
	"essence_crystals", "bonus_cosmetics", "is_available",
}

func (p *StorePackage) toModel() (*model.StorePackage, error) {
	cosmetics, err := parseUUIDs(p.BonusCosmetics)
	if err != nil {
		return nil, fmt.Errorf("bad bonus_cosmetics: %w", err)
	}

	return &model.StorePackage{
		PackageID:       p.PackageID,
		Title:           p.Title,
		Price:           p.Price,
		FavorTokens:     p.FavorTokens,
		EssenceCrystals: p.EssenceCrystals,
		BonusCosmetics:  cosmetics,
		IsAvailable:     p.IsAvailable,
	}, nil
}

func (r *Repository) GetPackageByID(ctx context.Context, packageID string) (*model.StorePackage, error) {
	query, args, err := squirrel.
		Select(packageColumns...).
		From("store_packages").
		Where(squirrel.Eq{"package_id": packageID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var pkg StorePackage
	err = r.db.GetContext(ctx, &pkg, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return pkg.toModel()
}

func (r *Repository) ListAvailablePackages(ctx context.Context) ([]*model.StorePackage, error) {
	query, args, err := squirrel.
		Select(packageColumns...).
		From("store_packages").
		Where(squirrel.Eq{"is_available": true}).
		OrderBy("price").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*StorePackage
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}

	packages := make([]*model.StorePackage, 0, len(rows))
	for _, p := range rows {
		pkg, err := p.toModel()
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}

// ApplyPurchase records the capture in the transactions ledger and credits
// the user in one transaction. The ledger insert runs first: if the order id
// is already present nothing is credited and ErrDuplicateOrder comes back,
// which makes a replayed capture call harmless.
func (r *Repository) ApplyPurchase(ctx context.Context, txn *model.Transaction, favor, essence int, cosmetics []uuid.UUID) (*model.User, error) {
	var updated User

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		ledgerQuery, ledgerArgs, err := squirrel.
			Insert("transactions").
			SetMap(map[string]interface{}{
				"order_id":         txn.OrderID,
				"user_telegram_id": txn.UserTelegramID,
				"package_id":       txn.PackageID,
				"capture_id":       txn.CaptureID,
				"status":           txn.Status,
				"created_at":       time.Now().UTC(),
			}).
			Suffix("ON CONFLICT (order_id) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build ledger insert query: %w", err)
		}

		result, err := tx.ExecContext(ctx, ledgerQuery, ledgerArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrDuplicateOrder
		}

		selectQuery, selectArgs, err := squirrel.
			Select("owned_cosmetics").
			From("users").
			Where(squirrel.Eq{"telegram_id": txn.UserTelegramID}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var owned pq.StringArray
		err = tx.QueryRowContext(ctx, selectQuery, selectArgs...).Scan(&owned)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		merged := mergeCosmetics(owned, cosmetics)

		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("favor_tokens", squirrel.Expr("favor_tokens + ?", favor)).
			Set("essence_crystals", squirrel.Expr("essence_crystals + ?", essence)).
			Set("owned_cosmetics", merged).
			Set("version", squirrel.Expr("version + 1")).
			Where(squirrel.Eq{"telegram_id": txn.UserTelegramID}).
			Suffix("RETURNING " + strings.Join(userColumns, ", ")).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build purchase credit query: %w", err)
		}

		row := tx.QueryRowxContext(ctx, updateQuery, updateArgs...)
		if err := row.StructScan(&updated); err != nil {
			return fmt.Errorf("failed to credit purchase: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated.toModel()
}

// mergeCosmetics unions the bonus cosmetics into the owned set; a cosmetic
// bought twice is still owned once.
func mergeCosmetics(owned pq.StringArray, bonus []uuid.UUID) pq.StringArray {
	seen := make(map[string]struct{}, len(owned))
	merged := make(pq.StringArray, 0, len(owned)+len(bonus))
	for _, s := range owned {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	for _, id := range bonus {
		s := id.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}
