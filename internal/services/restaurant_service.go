package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tastyfund/backend/internal/models"
	repo "github.com/tastyfund/backend/internal/repository"
	"github.com/tastyfund/backend/internal/validate"
)

type RestaurantInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CuisineType string `json:"cuisine_type"`
	Location    string `json:"location"`
}

type RestaurantService struct {
	r         repo.Restaurants
	campaigns repo.Campaigns
	ledger    repo.Ledger
}

func NewRestaurantService(r repo.Restaurants, c repo.Campaigns, l repo.Ledger) *RestaurantService {
	return &RestaurantService{r: r, campaigns: c, ledger: l}
}

func (in RestaurantInput) validate() error {
	var errs validate.Errs
	errs.Add(validate.Required("name", in.Name))
	if err := errs.Err(); err != nil {
		return &Error{Kind: InvalidInput, Msg: err.Error(), Err: err}
	}
	return nil
}

func (s *RestaurantService) Create(ctx context.Context, actor Actor, in RestaurantInput) (models.Restaurant, error) {
	if actor.Role != models.RoleRestaurantOwner && !actor.IsAdmin() {
		return models.Restaurant{}, newErr(Forbidden, "restaurant owner role required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return models.Restaurant{}, err
	}
	out, err := s.r.Create(ctx, models.Restaurant{
		OwnerID:     actor.UserID,
		Name:        in.Name,
		Description: in.Description,
		CuisineType: in.CuisineType,
		Location:    in.Location,
	})
	if err != nil {
		return models.Restaurant{}, storage(err, "owner not found")
	}
	return out, nil
}

func (s *RestaurantService) Get(ctx context.Context, id string) (models.Restaurant, error) {
	out, err := s.r.GetByID(ctx, id)
	if err != nil {
		return models.Restaurant{}, storage(err, "restaurant not found")
	}
	return out, nil
}

func (s *RestaurantService) List(ctx context.Context, f models.RestaurantFilter) ([]models.Restaurant, error) {
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	out, err := s.r.List(ctx, f)
	if err != nil {
		return nil, storage(err, "restaurant not found")
	}
	return out, nil
}

func (s *RestaurantService) Update(ctx context.Context, actor Actor, id string, in RestaurantInput) (models.Restaurant, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return models.Restaurant{}, err
	}
	if !actor.Owns(cur) {
		return models.Restaurant{}, newErr(Forbidden, "not allowed to edit this restaurant")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return models.Restaurant{}, err
	}
	cur.Name, cur.Description, cur.CuisineType, cur.Location = in.Name, in.Description, in.CuisineType, in.Location
	out, err := s.r.Update(ctx, cur)
	if err != nil {
		return models.Restaurant{}, storage(err, "restaurant not found")
	}
	return out, nil
}

// Campaigns lists a restaurant's campaigns with their funding.
func (s *RestaurantService) Campaigns(ctx context.Context, id string, limit, offset int) ([]models.CampaignView, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	out, err := s.campaigns.List(ctx, models.CampaignFilter{RestaurantID: id, Limit: limit, Offset: offset})
	if err != nil {
		return nil, storage(err, "restaurant not found")
	}
	return out, nil
}

// Delete retires a restaurant once none of its campaigns is draft or active. Finished
// campaigns and their investments stay readable.
func (s *RestaurantService) Delete(ctx context.Context, actor Actor, id string) error {
	err := runTx(ctx, s.ledger, defaultTxAttempts, func(tx repo.LedgerTx) error {
		r, err := tx.LockRestaurant(ctx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(r) {
			return newErr(Forbidden, "not allowed to delete this restaurant")
		}
		open, err := tx.CountCampaigns(ctx, id, models.CampaignDraft, models.CampaignActive)
		if err != nil {
			return err
		}
		if open > 0 {
			return newErr(InvalidStateTransition, "restaurant has %d open campaign(s)", open)
		}
		if err := tx.DeleteRestaurant(ctx, id); err != nil {
			return err
		}
		return audit(ctx, tx, "restaurant", id, actor.UserID, "deleted", map[string]any{"name": r.Name})
	})
	if err != nil {
		return storage(err, "restaurant not found")
	}
	slog.InfoContext(ctx, "restaurant deleted", "restaurant_id", id, "actor", actor.UserID)
	return nil
}
