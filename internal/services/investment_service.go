package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/cache"
	"github.com/tastyfund/backend/internal/metrics"
	"github.com/tastyfund/backend/internal/models"
	repo "github.com/tastyfund/backend/internal/repository"
	"github.com/tastyfund/backend/internal/validate"
)

// SettlementMode decides the status a newly accepted investment is recorded with.
type SettlementMode string

const (
	// SettleImmediate records accepted investments as confirmed.
	SettleImmediate SettlementMode = "immediate"
	// SettleManual records them as pending until an admin confirms or fails them.
	SettleManual SettlementMode = "manual"
)

type InvestmentOptions struct {
	Mode       SettlementMode
	TxAttempts int
	Cache      cache.SummaryCache
	Now        func() time.Time
}

type InvestmentService struct {
	ledger      repo.Ledger
	investments repo.Investments
	mode        SettlementMode
	attempts    int
	cache       cache.SummaryCache
	now         func() time.Time
}

func NewInvestmentService(l repo.Ledger, inv repo.Investments, opts InvestmentOptions) *InvestmentService {
	s := &InvestmentService{
		ledger:      l,
		investments: inv,
		mode:        opts.Mode,
		attempts:    opts.TxAttempts,
		cache:       opts.Cache,
		now:         opts.Now,
	}
	if s.mode == "" {
		s.mode = SettleImmediate
	}
	if s.attempts <= 0 {
		s.attempts = defaultTxAttempts
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Submit validates a pledge and records it. Checks run in a fixed order and the first
// violation wins; the goal check and the insert share one transaction holding the campaign
// row lock, so concurrent pledges cannot jointly overshoot the goal.
func (s *InvestmentService) Submit(ctx context.Context, userID, campaignID string, amount decimal.Decimal) (models.Investment, error) {
	inv, err := s.submit(ctx, userID, campaignID, amount)
	if err != nil {
		metrics.InvestmentsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return models.Investment{}, err
	}
	metrics.InvestmentsTotal.WithLabelValues("accepted").Inc()
	s.cache.Invalidate(ctx, campaignID)
	slog.InfoContext(ctx, "investment accepted",
		"investment_id", inv.ID, "campaign_id", campaignID, "user_id", userID,
		"amount", inv.Amount.String(), "status", inv.Status)
	return inv, nil
}

func (s *InvestmentService) submit(ctx context.Context, userID, campaignID string, amount decimal.Decimal) (models.Investment, error) {
	if userID == "" {
		return models.Investment{}, newErr(InvalidInput, "user is required")
	}
	if amount.Sign() <= 0 {
		return models.Investment{}, newErr(InvalidInput, "amount must be a positive number")
	}
	if !validate.MoneyInRange(amount) {
		return models.Investment{}, newErr(InvalidInput, "amount is out of range")
	}
	if !amount.Equal(amount.Round(validate.MoneyScale)) {
		return models.Investment{}, newErr(InvalidInput, "amount must have at most 2 decimal places")
	}

	status := models.InvestmentConfirmed
	if s.mode == SettleManual {
		status = models.InvestmentPending
	}

	var out models.Investment
	err := runTx(ctx, s.ledger, s.attempts, func(tx repo.LedgerTx) error {
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if c.Status != models.CampaignActive {
			return newErr(CampaignNotActive, "campaign is not active")
		}
		if s.now().After(c.EndDate) {
			return newErr(CampaignEnded, "campaign has ended")
		}
		if amount.LessThan(c.MinInvestment) {
			return newErr(BelowMinimum, "minimum investment is %s", c.MinInvestment.String())
		}
		if amount.GreaterThan(c.MaxInvestment) {
			return newErr(AboveMaximum, "maximum investment is %s", c.MaxInvestment.String())
		}

		reserved, err := tx.ReservedTotal(ctx, c.ID)
		if err != nil {
			return err
		}
		if reserved.Add(amount).GreaterThan(c.GoalAmount) {
			return newErr(ExceedsGoal, "investment would exceed campaign goal; remaining %s",
				c.GoalAmount.Sub(reserved).String())
		}

		out, err = tx.InsertInvestment(ctx, models.Investment{
			ID:         uuid.NewString(),
			UserID:     userID,
			CampaignID: c.ID,
			Amount:     amount,
			Status:     status,
		})
		if err != nil {
			return err
		}
		if err := audit(ctx, tx, "investment", out.ID, userID, "created",
			map[string]any{"campaign_id": c.ID, "amount": amount.String(), "status": string(status)}); err != nil {
			return err
		}
		if status == models.InvestmentConfirmed {
			return s.fundIfReached(ctx, tx, c, userID)
		}
		return nil
	})
	if err != nil {
		return models.Investment{}, storage(err, "campaign not found")
	}
	return out, nil
}

// fundIfReached moves an active campaign to funded once confirmed investment equals the
// goal. The reserved-total check makes anything above the goal unreachable.
func (s *InvestmentService) fundIfReached(ctx context.Context, tx repo.LedgerTx, c models.Campaign, actorID string) error {
	confirmed, err := tx.ConfirmedTotal(ctx, c.ID)
	if err != nil {
		return err
	}
	if c.Status != models.CampaignActive || confirmed.LessThan(c.GoalAmount) {
		return nil
	}
	if _, err := tx.SetCampaignStatus(ctx, c.ID, models.CampaignFunded); err != nil {
		return err
	}
	metrics.CampaignTransitions.WithLabelValues(string(models.CampaignFunded)).Inc()
	slog.InfoContext(ctx, "campaign funded", "campaign_id", c.ID, "total", confirmed.String())
	return audit(ctx, tx, "campaign", c.ID, actorID, "status_change",
		map[string]any{"from": string(c.Status), "to": string(models.CampaignFunded)})
}

// Summary aggregates confirmed investments for display. It reads through the summary cache;
// Submit never does.
func (s *InvestmentService) Summary(ctx context.Context, campaignID string) (models.FundingSummary, error) {
	if sum, ok := s.cache.Get(ctx, campaignID); ok {
		return sum, nil
	}
	gen, cacheable := s.cache.Generation(ctx, campaignID)
	sum, err := s.investments.Summary(ctx, campaignID)
	if err != nil {
		return models.FundingSummary{}, storage(err, "campaign not found")
	}
	if cacheable {
		s.cache.SetIfCurrent(ctx, campaignID, gen, sum)
	}
	return sum, nil
}

// Cancel withdraws a pending investment owned by userID. Someone else's investment is
// reported as not found. The row is kept with status cancelled.
func (s *InvestmentService) Cancel(ctx context.Context, userID, investmentID string) error {
	var campaignID string
	err := runTx(ctx, s.ledger, s.attempts, func(tx repo.LedgerTx) error {
		inv, err := tx.LockInvestment(ctx, investmentID)
		if err != nil {
			return err
		}
		if inv.UserID != userID {
			return newErr(NotFound, "investment not found")
		}
		if inv.Status != models.InvestmentPending {
			return newErr(InvalidStateTransition, "can only cancel pending investments")
		}
		if _, err := tx.SetInvestmentStatus(ctx, inv.ID, models.InvestmentCancelled); err != nil {
			return err
		}
		campaignID = inv.CampaignID
		return audit(ctx, tx, "investment", inv.ID, userID, "status_change",
			map[string]any{"from": string(inv.Status), "to": string(models.InvestmentCancelled)})
	})
	if err != nil {
		return storage(err, "investment not found")
	}
	metrics.InvestmentTransitions.WithLabelValues(string(models.InvestmentCancelled)).Inc()
	s.cache.Invalidate(ctx, campaignID)
	slog.InfoContext(ctx, "investment cancelled", "investment_id", investmentID, "user_id", userID)
	return nil
}

// Confirm settles a pending investment. Admin only.
func (s *InvestmentService) Confirm(ctx context.Context, actor Actor, investmentID string) (models.Investment, error) {
	return s.settle(ctx, actor, investmentID, models.InvestmentConfirmed)
}

// Fail rejects a pending investment, releasing its reservation. Admin only.
func (s *InvestmentService) Fail(ctx context.Context, actor Actor, investmentID string) (models.Investment, error) {
	return s.settle(ctx, actor, investmentID, models.InvestmentFailed)
}

func (s *InvestmentService) settle(ctx context.Context, actor Actor, investmentID string, to models.InvestmentStatus) (models.Investment, error) {
	if !actor.IsAdmin() {
		return models.Investment{}, newErr(Forbidden, "admin role required")
	}
	// campaign id is read first so the campaign row is locked before the investment row,
	// the same order intake and campaign cancellation use
	view, err := s.investments.GetView(ctx, investmentID)
	if err != nil {
		return models.Investment{}, storage(err, "investment not found")
	}

	var out models.Investment
	err = runTx(ctx, s.ledger, s.attempts, func(tx repo.LedgerTx) error {
		c, err := tx.LockCampaign(ctx, view.CampaignID)
		if err != nil {
			return err
		}
		inv, err := tx.LockInvestment(ctx, investmentID)
		if err != nil {
			return err
		}
		if inv.Status != models.InvestmentPending {
			return newErr(InvalidStateTransition, "only pending investments can be %s", to)
		}
		if out, err = tx.SetInvestmentStatus(ctx, inv.ID, to); err != nil {
			return err
		}
		if err := audit(ctx, tx, "investment", inv.ID, actor.UserID, "status_change",
			map[string]any{"from": string(inv.Status), "to": string(to)}); err != nil {
			return err
		}
		if to == models.InvestmentConfirmed {
			return s.fundIfReached(ctx, tx, c, actor.UserID)
		}
		return nil
	})
	if err != nil {
		return models.Investment{}, storage(err, "investment not found")
	}
	metrics.InvestmentTransitions.WithLabelValues(string(to)).Inc()
	s.cache.Invalidate(ctx, view.CampaignID)
	return out, nil
}

// Get returns one investment to its owner; admins may read any.
func (s *InvestmentService) Get(ctx context.Context, actor Actor, id string) (models.InvestmentView, error) {
	v, err := s.investments.GetView(ctx, id)
	if err != nil {
		return models.InvestmentView{}, storage(err, "investment not found")
	}
	if v.UserID != actor.UserID && !actor.IsAdmin() {
		return models.InvestmentView{}, newErr(NotFound, "investment not found")
	}
	return v, nil
}

// ListByUser returns the user's portfolio, newest first.
func (s *InvestmentService) ListByUser(ctx context.Context, userID string) ([]models.InvestmentView, error) {
	out, err := s.investments.ListByUser(ctx, userID)
	if err != nil {
		return nil, storage(err, "user not found")
	}
	return out, nil
}
