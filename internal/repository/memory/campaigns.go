package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/repository"
)

type campaignsRepo struct{ s *Store }

func (r campaignsRepo) Create(_ context.Context, in models.Campaign) (models.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.liveRestaurantLocked(in.RestaurantID); !ok {
		return models.Campaign{}, repository.ErrNotFound
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	in.CreatedAt = r.s.now()
	in.UpdatedAt = in.CreatedAt
	r.s.campaigns[in.ID] = in
	return in, nil
}

func (r campaignsRepo) GetByID(_ context.Context, id string) (models.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return models.Campaign{}, repository.ErrNotFound
	}
	return c, nil
}

func (r campaignsRepo) GetView(_ context.Context, id string) (models.CampaignView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return models.CampaignView{}, repository.ErrNotFound
	}
	return r.s.viewLocked(c), nil
}

func (r campaignsRepo) List(_ context.Context, f models.CampaignFilter) ([]models.CampaignView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.CampaignView{}
	for _, c := range r.s.campaigns {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.RestaurantID != "" && c.RestaurantID != f.RestaurantID {
			continue
		}
		out = append(out, r.s.viewLocked(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r campaignsRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]models.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Campaign{}
	for _, c := range r.s.campaigns {
		if c.Status == models.CampaignActive && c.EndDate.Before(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return page(out, limit, 0), nil
}

func (r campaignsRepo) UpdateDraft(_ context.Context, in models.Campaign) (models.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.campaigns[in.ID]
	if !ok || cur.Status != models.CampaignDraft {
		return models.Campaign{}, repository.ErrNotFound
	}
	cur.Title, cur.Description = in.Title, in.Description
	cur.GoalAmount, cur.MinInvestment, cur.MaxInvestment = in.GoalAmount, in.MinInvestment, in.MaxInvestment
	cur.StartDate, cur.EndDate = in.StartDate, in.EndDate
	cur.UpdatedAt = r.s.now()
	r.s.campaigns[in.ID] = cur
	return cur, nil
}

func (s *Store) viewLocked(c models.Campaign) models.CampaignView {
	v := models.CampaignView{Campaign: c, Funding: s.summaryLocked(c.ID)}
	if rest, ok := s.restaurants[c.RestaurantID]; ok {
		v.RestaurantName, v.CuisineType, v.Location = rest.Name, rest.CuisineType, rest.Location
	}
	return v
}

func (s *Store) summaryLocked(campaignID string) models.FundingSummary {
	total := decimal.Zero
	backers := map[string]struct{}{}
	for _, inv := range s.investments {
		if inv.CampaignID != campaignID || inv.Status != models.InvestmentConfirmed {
			continue
		}
		total = total.Add(inv.Amount)
		backers[inv.UserID] = struct{}{}
	}
	return models.FundingSummary{TotalInvested: total, BackerCount: len(backers)}
}
