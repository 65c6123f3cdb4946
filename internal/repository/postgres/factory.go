package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/tastyfund/backend/internal/repository"
)

type Repositories struct {
	Users       repo.Users
	Restaurants repo.Restaurants
	Campaigns   repo.Campaigns
	Investments repo.Investments
	Ledger      repo.Ledger
}

func NewRepositories(pool *pgxpool.Pool, iso pgx.TxIsoLevel) Repositories {
	return Repositories{
		Users:       &usersRepo{pool},
		Restaurants: &restaurantsRepo{pool},
		Campaigns:   &campaignsRepo{pool},
		Investments: &investmentsRepo{pool},
		Ledger:      NewLedger(pool, iso),
	}
}
