package model

import (
	"time"

	"github.com/google/uuid"
)

type StorePackage struct {
	PackageID       string
	Title           string
	Price           string
	FavorTokens     int
	EssenceCrystals int
	BonusCosmetics  []uuid.UUID
	IsAvailable     bool
}

// GrantPayload travels inside the PayPal order's custom_id field and is the
// record of what a completed payment should credit. On capture it is only
// trusted for identity and package selection; amounts are re-read from the
// StorePackage row.
type GrantPayload struct {
	UserID         int64       `json:"userId"`
	PackageID      string      `json:"packageId"`
	Favor          int         `json:"favor"`
	Essence        int         `json:"essence"`
	BonusCosmetics []uuid.UUID `json:"bonusCosmetics,omitempty"`
}

// Transaction is the capture idempotency ledger: one row per PayPal order id,
// inserted before crediting so a replayed capture can never credit twice.
type Transaction struct {
	OrderID        string
	UserTelegramID int64
	PackageID      string
	CaptureID      string
	Status         string
	CreatedAt      time.Time
}

type CheckoutOrder struct {
	OrderID    string
	ApproveURL string
}

type PurchaseResult struct {
	FavorGranted     int
	EssenceGranted   int
	CosmeticsGranted []uuid.UUID
	BalanceFavor     int
	BalanceEssence   int
	TransactionID    string
}
