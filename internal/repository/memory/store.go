// Package memory is a process-local implementation of the repository interfaces. It backs
// local runs without Postgres and the service tests. Ledger transactions are serialized by a
// single mutex and rolled back through an undo log.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/repository"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	users       map[string]models.User
	restaurants map[string]models.Restaurant
	campaigns   map[string]models.Campaign
	investments map[string]models.Investment
	audit       []models.AuditLog
	// deleted restaurants stay in restaurants so campaign history can still name them.
	deleted map[string]time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock stamps created/updated times with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:         now,
		users:       map[string]models.User{},
		restaurants: map[string]models.Restaurant{},
		campaigns:   map[string]models.Campaign{},
		investments: map[string]models.Investment{},
		deleted:     map[string]time.Time{},
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Users() repository.Users             { return usersRepo{s} }
func (s *Store) Restaurants() repository.Restaurants { return restaurantsRepo{s} }
func (s *Store) Campaigns() repository.Campaigns     { return campaignsRepo{s} }
func (s *Store) Investments() repository.Investments { return investmentsRepo{s} }
func (s *Store) Ledger() repository.Ledger           { return s }

// AuditLogs returns a copy of every audit entry committed so far.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// ---------- users ----------

type usersRepo struct{ s *Store }

func (r usersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return models.User{}, repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	return u, nil
}

func (r usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r usersRepo) List(_ context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------- restaurants ----------

type restaurantsRepo struct{ s *Store }

func (r restaurantsRepo) Create(_ context.Context, in models.Restaurant) (models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[in.OwnerID]; !ok {
		return models.Restaurant{}, repository.ErrNotFound
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	in.CreatedAt = r.s.now()
	in.UpdatedAt = in.CreatedAt
	r.s.restaurants[in.ID] = in
	return in, nil
}

func (r restaurantsRepo) GetByID(_ context.Context, id string) (models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rest, ok := r.s.liveRestaurantLocked(id)
	if !ok {
		return models.Restaurant{}, repository.ErrNotFound
	}
	return rest, nil
}

func (r restaurantsRepo) List(_ context.Context, f models.RestaurantFilter) ([]models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Restaurant{}
	for id, rest := range r.s.restaurants {
		if _, gone := r.s.deleted[id]; gone {
			continue
		}
		if f.CuisineType != "" && rest.CuisineType != f.CuisineType {
			continue
		}
		if f.Location != "" && !strings.Contains(strings.ToLower(rest.Location), strings.ToLower(f.Location)) {
			continue
		}
		out = append(out, rest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r restaurantsRepo) Update(_ context.Context, in models.Restaurant) (models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.liveRestaurantLocked(in.ID)
	if !ok {
		return models.Restaurant{}, repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.CuisineType, cur.Location = in.Name, in.Description, in.CuisineType, in.Location
	cur.UpdatedAt = r.s.now()
	r.s.restaurants[in.ID] = cur
	return cur, nil
}

func (s *Store) liveRestaurantLocked(id string) (models.Restaurant, bool) {
	rest, ok := s.restaurants[id]
	if !ok {
		return models.Restaurant{}, false
	}
	if _, gone := s.deleted[id]; gone {
		return models.Restaurant{}, false
	}
	return rest, true
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
