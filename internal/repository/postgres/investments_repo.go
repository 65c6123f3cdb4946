package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastyfund/backend/internal/models"
)

type investmentsRepo struct{ pool *pgxpool.Pool }

const investmentCols = `i.id, i.user_id, i.campaign_id, i.amount, i.status, i.created_at, i.updated_at`

const investmentViewSelect = `
SELECT ` + investmentCols + `, c.title, c.status, r.name
  FROM investments i
  JOIN campaigns c ON c.id = i.campaign_id
  JOIN restaurants r ON r.id = c.restaurant_id`

func investmentDest(i *models.Investment) []any {
	return []any{&i.ID, &i.UserID, &i.CampaignID, &i.Amount, &i.Status, &i.CreatedAt, &i.UpdatedAt}
}

func scanInvestment(s scanner) (models.Investment, error) {
	var i models.Investment
	err := s.Scan(investmentDest(&i)...)
	return i, err
}

func scanInvestmentView(s scanner) (models.InvestmentView, error) {
	var v models.InvestmentView
	err := s.Scan(append(investmentDest(&v.Investment), &v.CampaignTitle, &v.CampaignStatus, &v.RestaurantName)...)
	return v, err
}

func (r *investmentsRepo) GetView(ctx context.Context, id string) (models.InvestmentView, error) {
	v, err := scanInvestmentView(r.pool.QueryRow(ctx, investmentViewSelect+` WHERE i.id=$1`, id))
	return v, translate(err)
}

func (r *investmentsRepo) ListByUser(ctx context.Context, userID string) ([]models.InvestmentView, error) {
	rows, err := r.pool.Query(ctx, investmentViewSelect+`
 WHERE i.user_id=$1
 ORDER BY i.created_at DESC, i.id`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.InvestmentView{}
	for rows.Next() {
		v, err := scanInvestmentView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *investmentsRepo) ListByCampaign(ctx context.Context, campaignID string) ([]models.Investment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+investmentCols+` FROM investments i WHERE i.campaign_id=$1 ORDER BY i.created_at DESC, i.id`,
		campaignID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.Investment{}
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *investmentsRepo) Summary(ctx context.Context, campaignID string) (models.FundingSummary, error) {
	var s models.FundingSummary
	// the outer row comes from campaigns so a missing campaign yields ErrNoRows
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(i.amount), 0), COUNT(DISTINCT i.user_id)
  FROM campaigns c
  LEFT JOIN investments i ON i.campaign_id = c.id AND i.status = 'confirmed'
 WHERE c.id = $1
 GROUP BY c.id`, campaignID).Scan(&s.TotalInvested, &s.BackerCount)
	return s, translate(err)
}
