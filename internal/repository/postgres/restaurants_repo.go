package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastyfund/backend/internal/models"
)

type restaurantsRepo struct{ pool *pgxpool.Pool }

const restaurantCols = `id, owner_id, name, description, cuisine_type, location, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanRestaurant(s scanner) (models.Restaurant, error) {
	var r models.Restaurant
	err := s.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Description, &r.CuisineType, &r.Location, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *restaurantsRepo) Create(ctx context.Context, in models.Restaurant) (models.Restaurant, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	out, err := scanRestaurant(r.pool.QueryRow(ctx,
		`INSERT INTO restaurants(id, owner_id, name, description, cuisine_type, location)
		 VALUES($1,$2,$3,$4,$5,$6) RETURNING `+restaurantCols,
		in.ID, in.OwnerID, in.Name, in.Description, in.CuisineType, in.Location))
	return out, translate(err)
}

func (r *restaurantsRepo) GetByID(ctx context.Context, id string) (models.Restaurant, error) {
	out, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantCols+` FROM restaurants WHERE id=$1 AND deleted_at IS NULL`, id))
	return out, translate(err)
}

func (r *restaurantsRepo) List(ctx context.Context, f models.RestaurantFilter) ([]models.Restaurant, error) {
	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if f.CuisineType != "" {
		args = append(args, f.CuisineType)
		conds = append(conds, fmt.Sprintf("cuisine_type = $%d", len(args)))
	}
	if f.Location != "" {
		args = append(args, "%"+f.Location+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	q := `SELECT ` + restaurantCols + ` FROM restaurants WHERE ` + strings.Join(conds, " AND ")
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.Restaurant{}
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

func (r *restaurantsRepo) Update(ctx context.Context, in models.Restaurant) (models.Restaurant, error) {
	out, err := scanRestaurant(r.pool.QueryRow(ctx,
		`UPDATE restaurants
		    SET name=$2, description=$3, cuisine_type=$4, location=$5, updated_at=now()
		  WHERE id=$1 AND deleted_at IS NULL
		  RETURNING `+restaurantCols,
		in.ID, in.Name, in.Description, in.CuisineType, in.Location))
	return out, translate(err)
}
