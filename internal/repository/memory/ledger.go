package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/repository"
)

func (s *Store) WithTx(ctx context.Context, fn func(repository.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledgerTx{s: s}
	if err := fn(tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// ledgerTx runs with Store.mu held; every write records its inverse in undo.
type ledgerTx struct {
	s    *Store
	undo []func()
}

func (t *ledgerTx) LockCampaign(_ context.Context, id string) (models.Campaign, error) {
	c, ok := t.s.campaigns[id]
	if !ok {
		return models.Campaign{}, repository.ErrNotFound
	}
	return c, nil
}

func (t *ledgerTx) LockInvestment(_ context.Context, id string) (models.Investment, error) {
	inv, ok := t.s.investments[id]
	if !ok {
		return models.Investment{}, repository.ErrNotFound
	}
	return inv, nil
}

func (t *ledgerTx) sum(campaignID string, keep func(models.InvestmentStatus) bool) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range t.s.investments {
		if inv.CampaignID == campaignID && keep(inv.Status) {
			total = total.Add(inv.Amount)
		}
	}
	return total
}

func (t *ledgerTx) ReservedTotal(_ context.Context, campaignID string) (decimal.Decimal, error) {
	return t.sum(campaignID, models.InvestmentStatus.Reserves), nil
}

func (t *ledgerTx) ConfirmedTotal(_ context.Context, campaignID string) (decimal.Decimal, error) {
	return t.sum(campaignID, func(st models.InvestmentStatus) bool { return st == models.InvestmentConfirmed }), nil
}

func (t *ledgerTx) InsertInvestment(_ context.Context, in models.Investment) (models.Investment, error) {
	if _, ok := t.s.campaigns[in.CampaignID]; !ok {
		return models.Investment{}, repository.ErrNotFound
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if _, exists := t.s.investments[in.ID]; exists {
		return models.Investment{}, repository.ErrDuplicate
	}
	in.CreatedAt = t.s.now()
	in.UpdatedAt = in.CreatedAt
	t.s.investments[in.ID] = in
	id := in.ID
	t.undo = append(t.undo, func() { delete(t.s.investments, id) })
	return in, nil
}

func (t *ledgerTx) SetInvestmentStatus(_ context.Context, id string, status models.InvestmentStatus) (models.Investment, error) {
	prev, ok := t.s.investments[id]
	if !ok {
		return models.Investment{}, repository.ErrNotFound
	}
	next := prev
	next.Status = status
	next.UpdatedAt = t.s.now()
	t.s.investments[id] = next
	t.undo = append(t.undo, func() { t.s.investments[id] = prev })
	return next, nil
}

func (t *ledgerTx) SetCampaignStatus(_ context.Context, id string, status models.CampaignStatus) (models.Campaign, error) {
	prev, ok := t.s.campaigns[id]
	if !ok {
		return models.Campaign{}, repository.ErrNotFound
	}
	next := prev
	next.Status = status
	next.UpdatedAt = t.s.now()
	t.s.campaigns[id] = next
	t.undo = append(t.undo, func() { t.s.campaigns[id] = prev })
	return next, nil
}

func (t *ledgerTx) FailPending(ctx context.Context, campaignID string) (int, error) {
	var ids []string
	for id, inv := range t.s.investments {
		if inv.CampaignID == campaignID && inv.Status == models.InvestmentPending {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if _, err := t.SetInvestmentStatus(ctx, id, models.InvestmentFailed); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (t *ledgerTx) AppendAudit(_ context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = t.s.now()
	n := len(t.s.audit)
	t.s.audit = append(t.s.audit, l)
	t.undo = append(t.undo, func() { t.s.audit = t.s.audit[:n] })
	return nil
}

func (t *ledgerTx) CountInvestments(_ context.Context, campaignID string) (int, error) {
	n := 0
	for _, inv := range t.s.investments {
		if inv.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (t *ledgerTx) DeleteCampaign(_ context.Context, id string) error {
	prev, ok := t.s.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(t.s.campaigns, id)
	t.undo = append(t.undo, func() { t.s.campaigns[id] = prev })
	return nil
}

func (t *ledgerTx) LockRestaurant(_ context.Context, id string) (models.Restaurant, error) {
	rest, ok := t.s.liveRestaurantLocked(id)
	if !ok {
		return models.Restaurant{}, repository.ErrNotFound
	}
	return rest, nil
}

func (t *ledgerTx) CountCampaigns(_ context.Context, restaurantID string, statuses ...models.CampaignStatus) (int, error) {
	n := 0
	for _, c := range t.s.campaigns {
		if c.RestaurantID == restaurantID && slices.Contains(statuses, c.Status) {
			n++
		}
	}
	return n, nil
}

func (t *ledgerTx) DeleteRestaurant(_ context.Context, id string) error {
	if _, ok := t.s.liveRestaurantLocked(id); !ok {
		return repository.ErrNotFound
	}
	t.s.deleted[id] = t.s.now()
	t.undo = append(t.undo, func() { delete(t.s.deleted, id) })
	return nil
}
