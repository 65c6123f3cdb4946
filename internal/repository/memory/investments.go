package memory

import (
	"context"
	"sort"

	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/repository"
)

type investmentsRepo struct{ s *Store }

func (r investmentsRepo) GetView(_ context.Context, id string) (models.InvestmentView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.investments[id]
	if !ok {
		return models.InvestmentView{}, repository.ErrNotFound
	}
	return r.s.investmentViewLocked(inv), nil
}

func (r investmentsRepo) ListByUser(_ context.Context, userID string) ([]models.InvestmentView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.InvestmentView{}
	for _, inv := range r.s.investments {
		if inv.UserID == userID {
			out = append(out, r.s.investmentViewLocked(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].Investment, out[j].Investment) })
	return out, nil
}

func (r investmentsRepo) ListByCampaign(_ context.Context, campaignID string) ([]models.Investment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Investment{}
	for _, inv := range r.s.investments {
		if inv.CampaignID == campaignID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return out, nil
}

func (r investmentsRepo) Summary(_ context.Context, campaignID string) (models.FundingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[campaignID]; !ok {
		return models.FundingSummary{}, repository.ErrNotFound
	}
	return r.s.summaryLocked(campaignID), nil
}

func (s *Store) investmentViewLocked(inv models.Investment) models.InvestmentView {
	v := models.InvestmentView{Investment: inv}
	if c, ok := s.campaigns[inv.CampaignID]; ok {
		v.CampaignTitle, v.CampaignStatus = c.Title, c.Status
		if rest, ok := s.restaurants[c.RestaurantID]; ok {
			v.RestaurantName = rest.Name
		}
	}
	return v
}

func newerFirst(a, b models.Investment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
