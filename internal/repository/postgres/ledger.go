package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/repository"
)

type ledger struct {
	pool *pgxpool.Pool
	iso  pgx.TxIsoLevel
}

// NewLedger returns a Ledger running at the given isolation level. Correctness does not
// depend on it: every ledger write locks its campaign row first.
func NewLedger(pool *pgxpool.Pool, iso pgx.TxIsoLevel) repository.Ledger {
	if iso == "" {
		iso = pgx.ReadCommitted
	}
	return &ledger{pool: pool, iso: iso}
}

func (l *ledger) WithTx(ctx context.Context, fn func(repository.LedgerTx) error) error {
	iso := l.iso
	if iso == "" {
		iso = pgx.ReadCommitted
	}
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   iso,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return translate(err)
	}
	if err := fn(&ledgerTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return translate(err)
	}
	return translate(tx.Commit(ctx))
}

type ledgerTx struct{ tx pgx.Tx }

func (t *ledgerTx) LockCampaign(ctx context.Context, id string) (models.Campaign, error) {
	c, err := scanCampaign(t.tx.QueryRow(ctx, `SELECT `+campaignCols+` FROM campaigns c WHERE c.id=$1 FOR UPDATE`, id))
	return c, translate(err)
}

func (t *ledgerTx) LockInvestment(ctx context.Context, id string) (models.Investment, error) {
	i, err := scanInvestment(t.tx.QueryRow(ctx, `SELECT `+investmentCols+` FROM investments i WHERE i.id=$1 FOR UPDATE`, id))
	return i, translate(err)
}

func (t *ledgerTx) sum(ctx context.Context, campaignID string, statuses ...models.InvestmentStatus) (decimal.Decimal, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM investments WHERE campaign_id=$1 AND status = ANY($2)`,
		campaignID, names).Scan(&total)
	return total, translate(err)
}

func (t *ledgerTx) ReservedTotal(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	return t.sum(ctx, campaignID, models.InvestmentPending, models.InvestmentConfirmed)
}

func (t *ledgerTx) ConfirmedTotal(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	return t.sum(ctx, campaignID, models.InvestmentConfirmed)
}

func (t *ledgerTx) InsertInvestment(ctx context.Context, in models.Investment) (models.Investment, error) {
	out, err := scanInvestment(t.tx.QueryRow(ctx, `
INSERT INTO investments AS i (id, user_id, campaign_id, amount, status)
VALUES ($1,$2,$3,$4,$5)
RETURNING `+investmentCols,
		in.ID, in.UserID, in.CampaignID, in.Amount, in.Status))
	return out, translate(err)
}

func (t *ledgerTx) SetInvestmentStatus(ctx context.Context, id string, status models.InvestmentStatus) (models.Investment, error) {
	out, err := scanInvestment(t.tx.QueryRow(ctx, `
UPDATE investments AS i SET status=$2, updated_at=now() WHERE i.id=$1
RETURNING `+investmentCols, id, status))
	return out, translate(err)
}

func (t *ledgerTx) SetCampaignStatus(ctx context.Context, id string, status models.CampaignStatus) (models.Campaign, error) {
	out, err := scanCampaign(t.tx.QueryRow(ctx, `
UPDATE campaigns AS c SET status=$2, updated_at=now() WHERE c.id=$1
RETURNING `+campaignCols, id, status))
	return out, translate(err)
}

func (t *ledgerTx) FailPending(ctx context.Context, campaignID string) (int, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE investments SET status='failed', updated_at=now() WHERE campaign_id=$1 AND status='pending'`,
		campaignID)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *ledgerTx) AppendAudit(ctx context.Context, l models.AuditLog) error {
	details, err := json.Marshal(l.Details)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO audit_logs(entity_type, entity_id, actor_id, action, details) VALUES($1,$2,$3,$4,$5)`,
		l.EntityType, l.EntityID, l.ActorID, l.Action, details)
	return translate(err)
}

func (t *ledgerTx) CountInvestments(ctx context.Context, campaignID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM investments WHERE campaign_id=$1`, campaignID).Scan(&n)
	return n, translate(err)
}

func (t *ledgerTx) DeleteCampaign(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) LockRestaurant(ctx context.Context, id string) (models.Restaurant, error) {
	r, err := scanRestaurant(t.tx.QueryRow(ctx,
		`SELECT `+restaurantCols+` FROM restaurants WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`, id))
	return r, translate(err)
}

func (t *ledgerTx) CountCampaigns(ctx context.Context, restaurantID string, statuses ...models.CampaignStatus) (int, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE restaurant_id=$1 AND status = ANY($2)`,
		restaurantID, names).Scan(&n)
	return n, translate(err)
}

func (t *ledgerTx) DeleteRestaurant(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE restaurants SET deleted_at=now(), updated_at=now() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
