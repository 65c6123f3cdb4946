package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastyfund/backend/internal/models"
)

type campaignsRepo struct{ pool *pgxpool.Pool }

const campaignCols = `c.id, c.restaurant_id, c.title, c.description, c.goal_amount, c.min_investment,
	c.max_investment, c.start_date, c.end_date, c.status, c.created_at, c.updated_at`

// funding is aggregated from confirmed rows only; pending reservations are not displayed.
const campaignViewSelect = `
SELECT ` + campaignCols + `,
       r.name, r.cuisine_type, r.location,
       COALESCE(f.total, 0), COALESCE(f.backers, 0)
  FROM campaigns c
  JOIN restaurants r ON r.id = c.restaurant_id
  LEFT JOIN (
        SELECT campaign_id, SUM(amount) AS total, COUNT(DISTINCT user_id) AS backers
          FROM investments
         WHERE status = 'confirmed'
         GROUP BY campaign_id
  ) f ON f.campaign_id = c.id`

func campaignDest(c *models.Campaign) []any {
	return []any{&c.ID, &c.RestaurantID, &c.Title, &c.Description, &c.GoalAmount, &c.MinInvestment,
		&c.MaxInvestment, &c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt, &c.UpdatedAt}
}

func scanCampaign(s scanner) (models.Campaign, error) {
	var c models.Campaign
	err := s.Scan(campaignDest(&c)...)
	return c, err
}

func scanCampaignView(s scanner) (models.CampaignView, error) {
	var v models.CampaignView
	dest := append(campaignDest(&v.Campaign),
		&v.RestaurantName, &v.CuisineType, &v.Location,
		&v.Funding.TotalInvested, &v.Funding.BackerCount)
	err := s.Scan(dest...)
	return v, err
}

func (r *campaignsRepo) Create(ctx context.Context, in models.Campaign) (models.Campaign, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	// FOR SHARE waits out a concurrent DeleteRestaurant and then sees its deleted_at.
	out, err := scanCampaign(r.pool.QueryRow(ctx, `
WITH live AS (
  SELECT id FROM restaurants WHERE id=$2 AND deleted_at IS NULL FOR SHARE
)
INSERT INTO campaigns AS c (id, restaurant_id, title, description, goal_amount, min_investment,
                            max_investment, start_date, end_date, status)
SELECT $1::uuid, live.id, $3::text, $4::text, $5::numeric, $6::numeric, $7::numeric,
       $8::timestamptz, $9::timestamptz, $10::text
  FROM live
RETURNING `+campaignCols,
		in.ID, in.RestaurantID, in.Title, in.Description, in.GoalAmount, in.MinInvestment,
		in.MaxInvestment, in.StartDate, in.EndDate, in.Status))
	return out, translate(err)
}

func (r *campaignsRepo) GetByID(ctx context.Context, id string) (models.Campaign, error) {
	out, err := scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignCols+` FROM campaigns c WHERE c.id=$1`, id))
	return out, translate(err)
}

func (r *campaignsRepo) GetView(ctx context.Context, id string) (models.CampaignView, error) {
	out, err := scanCampaignView(r.pool.QueryRow(ctx, campaignViewSelect+` WHERE c.id=$1`, id))
	return out, translate(err)
}

func (r *campaignsRepo) List(ctx context.Context, f models.CampaignFilter) ([]models.CampaignView, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if f.RestaurantID != "" {
		args = append(args, f.RestaurantID)
		conds = append(conds, fmt.Sprintf("c.restaurant_id = $%d", len(args)))
	}
	q := campaignViewSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.CampaignView{}
	for rows.Next() {
		v, err := scanCampaignView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *campaignsRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignCols+` FROM campaigns c
		  WHERE c.status = 'active' AND c.end_date < $1
		  ORDER BY c.end_date
		  LIMIT $2`, now, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *campaignsRepo) UpdateDraft(ctx context.Context, in models.Campaign) (models.Campaign, error) {
	out, err := scanCampaign(r.pool.QueryRow(ctx, `
UPDATE campaigns AS c
   SET title=$2, description=$3, goal_amount=$4, min_investment=$5, max_investment=$6,
       start_date=$7, end_date=$8, updated_at=now()
 WHERE c.id=$1 AND c.status='draft'
RETURNING `+campaignCols,
		in.ID, in.Title, in.Description, in.GoalAmount, in.MinInvestment, in.MaxInvestment,
		in.StartDate, in.EndDate))
	return out, translate(err)
}
