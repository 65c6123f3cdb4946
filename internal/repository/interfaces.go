package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict marks a transaction aborted by the database's concurrency control; retryable.
	ErrConflict = errors.New("transaction conflict")
	// ErrInvalid marks a value the store cannot represent, such as a numeric overflow.
	ErrInvalid = errors.New("value out of range")
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Restaurants interface {
	Create(ctx context.Context, r models.Restaurant) (models.Restaurant, error)
	GetByID(ctx context.Context, id string) (models.Restaurant, error)
	List(ctx context.Context, f models.RestaurantFilter) ([]models.Restaurant, error)
	Update(ctx context.Context, r models.Restaurant) (models.Restaurant, error)
}

type Campaigns interface {
	Create(ctx context.Context, c models.Campaign) (models.Campaign, error)
	GetByID(ctx context.Context, id string) (models.Campaign, error)
	GetView(ctx context.Context, id string) (models.CampaignView, error)
	List(ctx context.Context, f models.CampaignFilter) ([]models.CampaignView, error)
	// ListExpired returns active campaigns whose end date is before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Campaign, error)
	// UpdateDraft rewrites the editable fields of a campaign that is still a draft.
	UpdateDraft(ctx context.Context, c models.Campaign) (models.Campaign, error)
}

type Investments interface {
	GetView(ctx context.Context, id string) (models.InvestmentView, error)
	ListByUser(ctx context.Context, userID string) ([]models.InvestmentView, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Investment, error)
	// Summary aggregates confirmed investments. ErrNotFound if the campaign is missing.
	Summary(ctx context.Context, campaignID string) (models.FundingSummary, error)
}

// Ledger runs a unit of work atomically: everything fn does through the LedgerTx commits
// together or not at all.
type Ledger interface {
	WithTx(ctx context.Context, fn func(LedgerTx) error) error
}

// LedgerTx is the set of reads and writes available inside a ledger transaction. Lock*
// methods hold the row until the transaction ends.
type LedgerTx interface {
	LockCampaign(ctx context.Context, id string) (models.Campaign, error)
	LockInvestment(ctx context.Context, id string) (models.Investment, error)
	// ReservedTotal sums pending and confirmed investments for the campaign.
	ReservedTotal(ctx context.Context, campaignID string) (decimal.Decimal, error)
	ConfirmedTotal(ctx context.Context, campaignID string) (decimal.Decimal, error)
	InsertInvestment(ctx context.Context, inv models.Investment) (models.Investment, error)
	SetInvestmentStatus(ctx context.Context, id string, status models.InvestmentStatus) (models.Investment, error)
	SetCampaignStatus(ctx context.Context, id string, status models.CampaignStatus) (models.Campaign, error)
	// FailPending moves every pending investment of the campaign to failed.
	FailPending(ctx context.Context, campaignID string) (int, error)
	AppendAudit(ctx context.Context, l models.AuditLog) error

	// CountInvestments counts the campaign's investment rows in any status.
	CountInvestments(ctx context.Context, campaignID string) (int, error)
	// DeleteCampaign removes a campaign row. Callers check it has no investments first.
	DeleteCampaign(ctx context.Context, id string) error

	LockRestaurant(ctx context.Context, id string) (models.Restaurant, error)
	// CountCampaigns counts the restaurant's campaigns in any of the given statuses.
	CountCampaigns(ctx context.Context, restaurantID string, statuses ...models.CampaignStatus) (int, error)
	// DeleteRestaurant hides the restaurant from reads and from new campaigns. Existing
	// campaigns and their investments are kept for history.
	DeleteRestaurant(ctx context.Context, id string) error
}
