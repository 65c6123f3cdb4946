package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/scheduler"
	"github.com/tastyfund/backend/internal/worker"
)

type fakeExpirer struct {
	mu      sync.Mutex
	due     []models.Campaign
	listErr error
	failing map[string]bool
	expired []string
}

func (f *fakeExpirer) DueForExpiry(_ context.Context, limit int) ([]models.Campaign, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeExpirer) Expire(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[id] {
		return false, errors.New("boom")
	}
	f.expired = append(f.expired, id)
	return true, nil
}

func TestRunOnce_ExpiresDueCampaigns(t *testing.T) {
	pool := worker.NewPool(3)
	defer pool.Stop()

	exp := &fakeExpirer{
		due:     []models.Campaign{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		failing: map[string]bool{"c": true},
	}
	s := scheduler.NewSweeper(context.Background(), exp, pool, 10)

	changed := s.RunOnce(context.Background())
	assert.Equal(t, 3, changed)
	assert.ElementsMatch(t, []string{"a", "b", "d"}, exp.expired)
}

func TestRunOnce_RespectsBatch(t *testing.T) {
	pool := worker.NewPool(1)
	defer pool.Stop()

	exp := &fakeExpirer{due: []models.Campaign{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	s := scheduler.NewSweeper(context.Background(), exp, pool, 2)

	assert.Equal(t, 2, s.RunOnce(context.Background()))
}

func TestRunOnce_ListError(t *testing.T) {
	pool := worker.NewPool(1)
	defer pool.Stop()

	exp := &fakeExpirer{listErr: errors.New("db down")}
	s := scheduler.NewSweeper(context.Background(), exp, pool, 10)
	assert.Equal(t, 0, s.RunOnce(context.Background()))
	assert.Empty(t, exp.expired)
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	pool := worker.NewPool(1)
	defer pool.Stop()

	s := scheduler.NewSweeper(context.Background(), &fakeExpirer{}, pool, 10)
	require.Error(t, s.Register("not a cron spec"))
	require.NoError(t, s.Register("@every 1m"))
	s.Start()
	s.Stop()
}
