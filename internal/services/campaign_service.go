package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/cache"
	"github.com/tastyfund/backend/internal/metrics"
	"github.com/tastyfund/backend/internal/models"
	repo "github.com/tastyfund/backend/internal/repository"
	"github.com/tastyfund/backend/internal/validate"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type CampaignInput struct {
	RestaurantID  string          `json:"restaurant_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	GoalAmount    decimal.Decimal `json:"goal_amount"`
	MinInvestment decimal.Decimal `json:"min_investment"`
	MaxInvestment decimal.Decimal `json:"max_investment"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
}

// Validate checks 0 < min <= max <= goal and end > start.
func (in CampaignInput) Validate() error {
	var errs validate.Errs
	errs.Add(
		validate.Money("goal_amount", in.GoalAmount),
		validate.Money("min_investment", in.MinInvestment),
		validate.Money("max_investment", in.MaxInvestment),
	)
	// Cross-field comparisons rescale, so they only run on amounts already in range.
	if len(errs) == 0 {
		errs.Add(
			validate.NotAfter("min_investment", in.MinInvestment, "max_investment", in.MaxInvestment),
			validate.NotAfter("max_investment", in.MaxInvestment, "goal_amount", in.GoalAmount),
		)
	}
	errs.Add(
		validate.Required("title", in.Title),
		validate.Before("start_date", in.StartDate, "end_date", in.EndDate),
	)
	if err := errs.Err(); err != nil {
		return &Error{Kind: InvalidInput, Msg: err.Error(), Err: err}
	}
	return nil
}

type CampaignService struct {
	campaigns   repo.Campaigns
	restaurants repo.Restaurants
	investments repo.Investments
	ledger      repo.Ledger
	cache       cache.SummaryCache
	attempts    int
	now         func() time.Time
}

type CampaignOptions struct {
	TxAttempts int
	Cache      cache.SummaryCache
	Now        func() time.Time
}

func NewCampaignService(c repo.Campaigns, r repo.Restaurants, i repo.Investments, l repo.Ledger, opts CampaignOptions) *CampaignService {
	s := &CampaignService{
		campaigns:   c,
		restaurants: r,
		investments: i,
		ledger:      l,
		cache:       opts.Cache,
		attempts:    opts.TxAttempts,
		now:         opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.attempts <= 0 {
		s.attempts = defaultTxAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create stores a new draft campaign for a restaurant the actor owns.
func (s *CampaignService) Create(ctx context.Context, actor Actor, in CampaignInput) (models.Campaign, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return models.Campaign{}, err
	}
	if _, err := s.authorize(ctx, actor, in.RestaurantID); err != nil {
		return models.Campaign{}, err
	}
	c, err := s.campaigns.Create(ctx, models.Campaign{
		RestaurantID:  in.RestaurantID,
		Title:         in.Title,
		Description:   in.Description,
		GoalAmount:    in.GoalAmount,
		MinInvestment: in.MinInvestment,
		MaxInvestment: in.MaxInvestment,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Status:        models.CampaignDraft,
	})
	if err != nil {
		return models.Campaign{}, storage(err, "restaurant not found")
	}
	slog.InfoContext(ctx, "campaign created", "campaign_id", c.ID, "restaurant_id", c.RestaurantID)
	return c, nil
}

// Update rewrites a draft. Published campaigns are immutable apart from status.
func (s *CampaignService) Update(ctx context.Context, actor Actor, id string, in CampaignInput) (models.Campaign, error) {
	cur, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return models.Campaign{}, storage(err, "campaign not found")
	}
	in.RestaurantID = cur.RestaurantID
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return models.Campaign{}, err
	}
	if _, err := s.authorize(ctx, actor, cur.RestaurantID); err != nil {
		return models.Campaign{}, err
	}
	if cur.Status != models.CampaignDraft {
		return models.Campaign{}, newErr(InvalidStateTransition, "only draft campaigns can be edited")
	}
	cur.Title, cur.Description = in.Title, in.Description
	cur.GoalAmount, cur.MinInvestment, cur.MaxInvestment = in.GoalAmount, in.MinInvestment, in.MaxInvestment
	cur.StartDate, cur.EndDate = in.StartDate, in.EndDate
	out, err := s.campaigns.UpdateDraft(ctx, cur)
	if err != nil {
		// lost a race with publish
		return models.Campaign{}, storage(err, "campaign not found")
	}
	return out, nil
}

// Get returns the campaign with its funding, first settling an expired active campaign.
func (s *CampaignService) Get(ctx context.Context, id string) (models.CampaignView, error) {
	v, err := s.campaigns.GetView(ctx, id)
	if err != nil {
		return models.CampaignView{}, storage(err, "campaign not found")
	}
	if v.Expired(s.now()) {
		if _, err := s.Expire(ctx, id); err != nil {
			return models.CampaignView{}, err
		}
		if v, err = s.campaigns.GetView(ctx, id); err != nil {
			return models.CampaignView{}, storage(err, "campaign not found")
		}
	}
	return v, nil
}

func (s *CampaignService) List(ctx context.Context, f models.CampaignFilter) ([]models.CampaignView, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newErr(InvalidInput, "unknown status %q", f.Status)
	}
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	out, err := s.campaigns.List(ctx, f)
	if err != nil {
		return nil, storage(err, "campaign not found")
	}
	now := s.now()
	for i := range out {
		if !out[i].Expired(now) {
			continue
		}
		c, _, err := s.expire(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Status = c.Status
	}
	return out, nil
}

// Publish moves a draft to active.
func (s *CampaignService) Publish(ctx context.Context, actor Actor, id string) (models.Campaign, error) {
	return s.transition(ctx, actor, id, models.CampaignActive, func(c models.Campaign) error {
		if c.Status != models.CampaignDraft {
			return newErr(InvalidStateTransition, "only draft campaigns can be published")
		}
		if !s.now().Before(c.EndDate) {
			return newErr(InvalidStateTransition, "campaign window has already closed")
		}
		return nil
	})
}

// Cancel withdraws a campaign before resolution; pending investments fail with it.
func (s *CampaignService) Cancel(ctx context.Context, actor Actor, id string) (models.Campaign, error) {
	return s.transition(ctx, actor, id, models.CampaignCancelled, func(c models.Campaign) error {
		if c.Status != models.CampaignDraft && c.Status != models.CampaignActive {
			return newErr(InvalidStateTransition, "campaign is already %s", c.Status)
		}
		return nil
	})
}

// Close ends any unresolved campaign administratively.
func (s *CampaignService) Close(ctx context.Context, actor Actor, id string) (models.Campaign, error) {
	if !actor.IsAdmin() {
		return models.Campaign{}, newErr(Forbidden, "admin role required")
	}
	return s.transition(ctx, actor, id, models.CampaignClosed, func(c models.Campaign) error {
		if c.Status.Terminal() {
			return newErr(InvalidStateTransition, "campaign is already %s", c.Status)
		}
		return nil
	})
}

func (s *CampaignService) transition(ctx context.Context, actor Actor, id string, to models.CampaignStatus, check func(models.Campaign) error) (models.Campaign, error) {
	cur, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return models.Campaign{}, storage(err, "campaign not found")
	}
	if _, err := s.authorize(ctx, actor, cur.RestaurantID); err != nil {
		return models.Campaign{}, err
	}

	var out models.Campaign
	err = runTx(ctx, s.ledger, s.attempts, func(tx repo.LedgerTx) error {
		c, err := tx.LockCampaign(ctx, id)
		if err != nil {
			return err
		}
		if err := check(c); err != nil {
			return err
		}
		if out, err = tx.SetCampaignStatus(ctx, id, to); err != nil {
			return err
		}
		failed := 0
		if to.Terminal() {
			if failed, err = tx.FailPending(ctx, id); err != nil {
				return err
			}
		}
		return audit(ctx, tx, "campaign", id, actor.UserID, "status_change",
			map[string]any{"from": string(c.Status), "to": string(to), "failed_pending": failed})
	})
	if err != nil {
		return models.Campaign{}, storage(err, "campaign not found")
	}
	metrics.CampaignTransitions.WithLabelValues(string(to)).Inc()
	s.cache.Invalidate(ctx, id)
	slog.InfoContext(ctx, "campaign status changed", "campaign_id", id, "to", to, "actor", actor.UserID)
	return out, nil
}

// Delete removes a draft campaign that never received an investment. Anything else is
// part of the ledger and can only be cancelled.
func (s *CampaignService) Delete(ctx context.Context, actor Actor, id string) error {
	cur, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return storage(err, "campaign not found")
	}
	if _, err := s.authorize(ctx, actor, cur.RestaurantID); err != nil {
		return err
	}
	err = runTx(ctx, s.ledger, s.attempts, func(tx repo.LedgerTx) error {
		c, err := tx.LockCampaign(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != models.CampaignDraft {
			return newErr(InvalidStateTransition, "only draft campaigns can be deleted, campaign is %s", c.Status)
		}
		n, err := tx.CountInvestments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return newErr(InvalidStateTransition, "campaign has investments")
		}
		if err := tx.DeleteCampaign(ctx, id); err != nil {
			return err
		}
		return audit(ctx, tx, "campaign", id, actor.UserID, "deleted",
			map[string]any{"restaurant_id": c.RestaurantID, "title": c.Title})
	})
	if err != nil {
		return storage(err, "campaign not found")
	}
	s.cache.Invalidate(ctx, id)
	slog.InfoContext(ctx, "campaign deleted", "campaign_id", id, "actor", actor.UserID)
	return nil
}

// Expire resolves an active campaign whose end date has passed: funded when confirmed
// investment reached the goal, failed otherwise. It reports whether a transition happened;
// campaigns already terminal are left alone.
func (s *CampaignService) Expire(ctx context.Context, id string) (bool, error) {
	_, changed, err := s.expire(ctx, id)
	return changed, err
}

func (s *CampaignService) expire(ctx context.Context, id string) (models.Campaign, bool, error) {
	var (
		out     models.Campaign
		changed bool
	)
	err := runTx(ctx, s.ledger, s.attempts, func(tx repo.LedgerTx) error {
		c, err := tx.LockCampaign(ctx, id)
		if err != nil {
			return err
		}
		out = c
		if !c.Expired(s.now()) {
			return nil
		}
		confirmed, err := tx.ConfirmedTotal(ctx, id)
		if err != nil {
			return err
		}
		to := models.CampaignFailed
		if !confirmed.LessThan(c.GoalAmount) {
			to = models.CampaignFunded
		}
		if out, err = tx.SetCampaignStatus(ctx, id, to); err != nil {
			return err
		}
		failed, err := tx.FailPending(ctx, id)
		if err != nil {
			return err
		}
		changed = true
		return audit(ctx, tx, "campaign", id, "", "expired",
			map[string]any{"to": string(to), "confirmed_total": confirmed.String(), "failed_pending": failed})
	})
	if err != nil {
		return models.Campaign{}, false, storage(err, "campaign not found")
	}
	if changed {
		metrics.CampaignTransitions.WithLabelValues(string(out.Status)).Inc()
		s.cache.Invalidate(ctx, id)
		slog.InfoContext(ctx, "campaign expired", "campaign_id", id, "status", out.Status)
	}
	return out, changed, nil
}

// DueForExpiry lists active campaigns past their end date.
func (s *CampaignService) DueForExpiry(ctx context.Context, limit int) ([]models.Campaign, error) {
	out, err := s.campaigns.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return nil, storage(err, "campaign not found")
	}
	return out, nil
}

// Investments lists every investment of a campaign for its owner or an admin.
func (s *CampaignService) Investments(ctx context.Context, actor Actor, id string) ([]models.Investment, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, storage(err, "campaign not found")
	}
	if _, err := s.authorize(ctx, actor, c.RestaurantID); err != nil {
		return nil, err
	}
	out, err := s.investments.ListByCampaign(ctx, id)
	if err != nil {
		return nil, storage(err, "campaign not found")
	}
	return out, nil
}

func (s *CampaignService) authorize(ctx context.Context, actor Actor, restaurantID string) (models.Restaurant, error) {
	r, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return models.Restaurant{}, storage(err, "restaurant not found")
	}
	if !actor.Owns(r) {
		return models.Restaurant{}, newErr(Forbidden, "not allowed to manage this restaurant's campaigns")
	}
	return r, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
