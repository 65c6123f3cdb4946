package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tastyfund/backend/internal/auth"
	"github.com/tastyfund/backend/internal/cache"
	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/repository"
	"github.com/tastyfund/backend/internal/repository/memory"
	"github.com/tastyfund/backend/internal/services"
)

func init() {
	auth.Cost = bcrypt.MinCost
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store       *memory.Store
	clock       *clock
	users       *services.UserService
	restaurants *services.RestaurantService
	campaigns   *services.CampaignService
	investments *services.InvestmentService

	owner      services.Actor
	admin      services.Actor
	alice, bob models.User
	restaurant models.Restaurant
}

func newFixture(t *testing.T, mode services.SettlementMode) *fixture {
	t.Helper()
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := memory.NewWithClock(clk.Now)

	f := &fixture{
		store:       st,
		clock:       clk,
		users:       services.NewUserService(st.Users()),
		restaurants: services.NewRestaurantService(st.Restaurants(), st.Campaigns(), st.Ledger()),
		campaigns: services.NewCampaignService(st.Campaigns(), st.Restaurants(), st.Investments(), st.Ledger(),
			services.CampaignOptions{Now: clk.Now}),
		investments: services.NewInvestmentService(st.Ledger(), st.Investments(),
			services.InvestmentOptions{Mode: mode, Now: clk.Now}),
		admin: services.Actor{UserID: "admin-1", Role: models.RoleAdmin},
	}

	owner, err := f.users.Register(ctx, "chef@example.com", "Chef Owner", "s3cret-pass", models.RoleRestaurantOwner)
	require.NoError(t, err)
	f.owner = services.Actor{UserID: owner.ID, Role: owner.Role}

	f.alice, err = f.users.Register(ctx, "alice@example.com", "Alice", "s3cret-pass", models.RoleInvestor)
	require.NoError(t, err)
	f.bob, err = f.users.Register(ctx, "bob@example.com", "Bob", "s3cret-pass", models.RoleInvestor)
	require.NoError(t, err)

	f.restaurant, err = f.restaurants.Create(ctx, f.owner, services.RestaurantInput{
		Name: "Trattoria Uno", CuisineType: "italian", Location: "Istanbul",
	})
	require.NoError(t, err)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) draft(t *testing.T, goal, min, max string) models.Campaign {
	t.Helper()
	now := f.clock.Now()
	c, err := f.campaigns.Create(context.Background(), f.owner, services.CampaignInput{
		RestaurantID:  f.restaurant.ID,
		Title:         "New wood-fired oven",
		GoalAmount:    dec(goal),
		MinInvestment: dec(min),
		MaxInvestment: dec(max),
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, models.CampaignDraft, c.Status)
	return c
}

func (f *fixture) active(t *testing.T, goal, min, max string) models.Campaign {
	t.Helper()
	c := f.draft(t, goal, min, max)
	c, err := f.campaigns.Publish(context.Background(), f.owner, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignActive, c.Status)
	return c
}

func (f *fixture) summary(t *testing.T, campaignID string) models.FundingSummary {
	t.Helper()
	s, err := f.investments.Summary(context.Background(), campaignID)
	require.NoError(t, err)
	return s
}

func TestSubmitInvestment_AmountLimits(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000000", "10000", "500000")

	_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("5000"))
	require.ErrorIs(t, err, services.BelowMinimum)
	require.Contains(t, err.Error(), "10000")

	_, err = f.investments.Submit(ctx, f.alice.ID, c.ID, dec("600000"))
	require.ErrorIs(t, err, services.AboveMaximum)

	inv, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("50000"))
	require.NoError(t, err)
	require.Equal(t, models.InvestmentConfirmed, inv.Status)
	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("50000"))
	require.NoError(t, err)

	s := f.summary(t, c.ID)
	require.True(t, dec("100000").Equal(s.TotalInvested), s.TotalInvested.String())
	require.Equal(t, 2, s.BackerCount)
}

func TestSubmitInvestment_BoundsAreInclusive(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "500")

	_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("100"))
	require.NoError(t, err)
	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("500"))
	require.NoError(t, err)
}

func TestSubmitInvestment_RejectsBadAmounts(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "1", "500")

	for _, amount := range []string{"0", "-5", "10.005"} {
		_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec(amount))
		require.ErrorIs(t, err, services.InvalidInput, amount)
	}
	require.Equal(t, 0, f.summary(t, c.ID).BackerCount)
}

func TestSubmitInvestment_RejectsOutOfRangeAmounts(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "1", "500")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, amount := range []string{"1e99999999", "1e-99999999", "12345678901234567", "1" + strings.Repeat("0", 5000)} {
			_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec(amount))
			assert.ErrorIs(t, err, services.InvalidInput, amount[:min(len(amount), 20)])
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("out-of-range amounts were not rejected promptly")
	}
	require.Equal(t, 0, f.summary(t, c.ID).BackerCount)
}

func TestSubmitInvestment_CheckOrder(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()

	_, err := f.investments.Submit(ctx, f.alice.ID, "no-such-campaign", dec("1"))
	require.ErrorIs(t, err, services.NotFound)

	// a draft rejects with CampaignNotActive even when the amount is also wrong
	d := f.draft(t, "1000", "100", "500")
	_, err = f.investments.Submit(ctx, f.alice.ID, d.ID, dec("1"))
	require.ErrorIs(t, err, services.CampaignNotActive)

	c := f.active(t, "1000", "100", "500")
	f.clock.Advance(31 * 24 * time.Hour)
	_, err = f.investments.Submit(ctx, f.alice.ID, c.ID, dec("1"))
	require.ErrorIs(t, err, services.CampaignEnded)

	g := f.active(t, "1000", "100", "600")
	_, err = f.investments.Submit(ctx, f.alice.ID, g.ID, dec("600"))
	require.NoError(t, err)
	// above maximum wins over exceeding the goal
	_, err = f.investments.Submit(ctx, f.bob.ID, g.ID, dec("700"))
	require.ErrorIs(t, err, services.AboveMaximum)
	_, err = f.investments.Submit(ctx, f.bob.ID, g.ID, dec("500"))
	require.ErrorIs(t, err, services.ExceedsGoal)
	require.Contains(t, err.Error(), "400")
}

func TestSubmitInvestment_ConcurrentPledgesNeverOvershootGoal(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000000", "10000", "600000")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, u := range []models.User{f.alice, f.bob} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = f.investments.Submit(ctx, userID, c.ID, dec("600000"))
		}(i, u.ID)
	}
	wg.Wait()

	var ok, exceeded int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case services.KindOf(err) == services.ExceedsGoal:
			exceeded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, exceeded)

	s := f.summary(t, c.ID)
	require.True(t, dec("600000").Equal(s.TotalInvested))
	require.Equal(t, 1, s.BackerCount)
}

func TestSubmitInvestment_ManyConcurrentStayWithinGoal(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "10", "100")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, _ = f.investments.Submit(ctx, userID, c.ID, dec("75"))
		}([]string{f.alice.ID, f.bob.ID}[i%2])
	}
	wg.Wait()

	s := f.summary(t, c.ID)
	require.False(t, s.TotalInvested.GreaterThan(c.GoalAmount))
	require.True(t, dec("975").Equal(s.TotalInvested), s.TotalInvested.String())
}

func TestSubmitInvestment_ReachingGoalFundsCampaign(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "600")

	_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("600"))
	require.NoError(t, err)
	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("400"))
	require.NoError(t, err)

	v, err := f.campaigns.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignFunded, v.Status)
	require.True(t, dec("1000").Equal(v.Funding.TotalInvested))

	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("100"))
	require.ErrorIs(t, err, services.CampaignNotActive)
}

func TestFundingSummary(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "10", "500")

	s := f.summary(t, c.ID)
	require.True(t, s.TotalInvested.IsZero())
	require.Equal(t, 0, s.BackerCount)

	for _, amt := range []string{"10.50", "20.25"} {
		_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec(amt))
		require.NoError(t, err)
	}
	first := f.summary(t, c.ID)
	second := f.summary(t, c.ID)
	require.Equal(t, "30.75", first.TotalInvested.StringFixed(2))
	require.Equal(t, 1, first.BackerCount)
	require.True(t, first.TotalInvested.Equal(second.TotalInvested))
	require.Equal(t, first.BackerCount, second.BackerCount)

	_, err := f.investments.Summary(ctx, "missing")
	require.ErrorIs(t, err, services.NotFound)
}

// pausingInvestments holds the first Summary call between its read and its return.
type pausingInvestments struct {
	repository.Investments
	read   chan struct{}
	resume chan struct{}
	once   sync.Once
}

func (p *pausingInvestments) Summary(ctx context.Context, campaignID string) (models.FundingSummary, error) {
	s, err := p.Investments.Summary(ctx, campaignID)
	p.once.Do(func() {
		close(p.read)
		<-p.resume
	})
	return s, err
}

func TestFundingSummary_CacheNeverKeepsPreCommitRead(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000000", "10000", "500000")

	gated := &pausingInvestments{
		Investments: f.store.Investments(),
		read:        make(chan struct{}),
		resume:      make(chan struct{}),
	}
	svc := services.NewInvestmentService(f.store.Ledger(), gated, services.InvestmentOptions{
		Cache: cache.NewMemory(time.Minute),
		Now:   f.clock.Now,
	})

	stale := make(chan models.FundingSummary, 1)
	go func() {
		s, err := svc.Summary(ctx, c.ID)
		assert.NoError(t, err)
		stale <- s
	}()

	<-gated.read
	_, err := svc.Submit(ctx, f.alice.ID, c.ID, dec("50000"))
	require.NoError(t, err)
	close(gated.resume)
	require.True(t, (<-stale).TotalInvested.IsZero())

	s, err := svc.Summary(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, dec("50000").Equal(s.TotalInvested), s.TotalInvested.String())
	require.Equal(t, 1, s.BackerCount)
}

func TestCancelInvestment(t *testing.T) {
	f := newFixture(t, services.SettleManual)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "600")

	inv, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("600"))
	require.NoError(t, err)
	require.Equal(t, models.InvestmentPending, inv.Status)
	require.Equal(t, 0, f.summary(t, c.ID).BackerCount)

	// pending amounts hold their share of the goal
	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("500"))
	require.ErrorIs(t, err, services.ExceedsGoal)

	err = f.investments.Cancel(ctx, f.bob.ID, inv.ID)
	require.ErrorIs(t, err, services.NotFound)

	require.NoError(t, f.investments.Cancel(ctx, f.alice.ID, inv.ID))
	err = f.investments.Cancel(ctx, f.alice.ID, inv.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)

	mine, err := f.investments.ListByUser(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, models.InvestmentCancelled, mine[0].Status)

	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("500"))
	require.NoError(t, err)

	err = f.investments.Cancel(ctx, f.alice.ID, "missing")
	require.ErrorIs(t, err, services.NotFound)
}

func TestCancelInvestment_ConfirmedIsImmutable(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "600")

	inv, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("300"))
	require.NoError(t, err)

	err = f.investments.Cancel(ctx, f.alice.ID, inv.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)
	require.True(t, dec("300").Equal(f.summary(t, c.ID).TotalInvested))
}

func TestSettleInvestment(t *testing.T) {
	f := newFixture(t, services.SettleManual)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "600")

	a, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("600"))
	require.NoError(t, err)
	b, err := f.investments.Submit(ctx, f.bob.ID, c.ID, dec("400"))
	require.NoError(t, err)

	_, err = f.investments.Confirm(ctx, f.owner, a.ID)
	require.ErrorIs(t, err, services.Forbidden)

	_, err = f.investments.Fail(ctx, f.admin, b.ID)
	require.NoError(t, err)
	_, err = f.investments.Confirm(ctx, f.admin, b.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)

	got, err := f.investments.Confirm(ctx, f.admin, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvestmentConfirmed, got.Status)

	s := f.summary(t, c.ID)
	require.True(t, dec("600").Equal(s.TotalInvested))
	require.Equal(t, 1, s.BackerCount)

	// the failed reservation was released
	c2, err := f.investments.Submit(ctx, f.bob.ID, c.ID, dec("400"))
	require.NoError(t, err)
	_, err = f.investments.Confirm(ctx, f.admin, c2.ID)
	require.NoError(t, err)

	v, err := f.campaigns.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignFunded, v.Status)
}

func TestGetInvestment_HidesOtherUsers(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "600")
	inv, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("100"))
	require.NoError(t, err)

	v, err := f.investments.Get(ctx, services.Actor{UserID: f.alice.ID, Role: models.RoleInvestor}, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "New wood-fired oven", v.CampaignTitle)
	require.Equal(t, "Trattoria Uno", v.RestaurantName)

	_, err = f.investments.Get(ctx, services.Actor{UserID: f.bob.ID, Role: models.RoleInvestor}, inv.ID)
	require.ErrorIs(t, err, services.NotFound)

	_, err = f.investments.Get(ctx, f.admin, inv.ID)
	require.NoError(t, err)
}

func TestListUserInvestments_NewestFirst(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "100", "600")

	first, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("100"))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("200"))
	require.NoError(t, err)
	_, err = f.investments.Submit(ctx, f.bob.ID, c.ID, dec("100"))
	require.NoError(t, err)

	mine, err := f.investments.ListByUser(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.ID, mine[0].ID)
	require.Equal(t, first.ID, mine[1].ID)

	none, err := f.investments.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestCampaignCreate_Validation(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	now := f.clock.Now()
	base := services.CampaignInput{
		RestaurantID:  f.restaurant.ID,
		Title:         "Patio",
		GoalAmount:    dec("1000"),
		MinInvestment: dec("10"),
		MaxInvestment: dec("100"),
		StartDate:     now,
		EndDate:       now.Add(time.Hour),
	}

	bad := base
	bad.MinInvestment = dec("200")
	_, err := f.campaigns.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, services.InvalidInput)

	bad = base
	bad.MaxInvestment = dec("2000")
	_, err = f.campaigns.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, services.InvalidInput)

	bad = base
	bad.EndDate = now.Add(-time.Hour)
	_, err = f.campaigns.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, services.InvalidInput)

	bad = base
	bad.GoalAmount = dec("1e99999999")
	_, err = f.campaigns.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, services.InvalidInput)
	require.Contains(t, err.Error(), "goal_amount: out of range")

	bad = base
	bad.Title = "  "
	_, err = f.campaigns.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, services.InvalidInput)

	_, err = f.campaigns.Create(ctx, services.Actor{UserID: f.alice.ID, Role: models.RoleInvestor}, base)
	require.ErrorIs(t, err, services.Forbidden)

	bad = base
	bad.RestaurantID = "missing"
	_, err = f.campaigns.Create(ctx, f.owner, bad)
	require.ErrorIs(t, err, services.NotFound)

	c, err := f.campaigns.Create(ctx, f.owner, base)
	require.NoError(t, err)
	require.Equal(t, models.CampaignDraft, c.Status)
}

func TestCampaignLifecycle(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.draft(t, "1000", "10", "100")

	in := services.CampaignInput{
		Title: "Renamed", GoalAmount: dec("2000"), MinInvestment: dec("10"), MaxInvestment: dec("100"),
		StartDate: c.StartDate, EndDate: c.EndDate,
	}
	upd, err := f.campaigns.Update(ctx, f.owner, c.ID, in)
	require.NoError(t, err)
	require.Equal(t, "Renamed", upd.Title)

	_, err = f.campaigns.Publish(ctx, f.owner, c.ID)
	require.NoError(t, err)
	_, err = f.campaigns.Publish(ctx, f.owner, c.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)
	_, err = f.campaigns.Update(ctx, f.owner, c.ID, in)
	require.ErrorIs(t, err, services.InvalidStateTransition)

	_, err = f.campaigns.Close(ctx, f.owner, c.ID)
	require.ErrorIs(t, err, services.Forbidden)
	closed, err := f.campaigns.Close(ctx, f.admin, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignClosed, closed.Status)

	_, err = f.campaigns.Cancel(ctx, f.owner, c.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)
	_, err = f.campaigns.Close(ctx, f.admin, c.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)
}

func TestCampaignDelete(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()

	c := f.draft(t, "1000", "10", "100")
	err := f.campaigns.Delete(ctx, services.Actor{UserID: f.bob.ID, Role: models.RoleRestaurantOwner}, c.ID)
	require.ErrorIs(t, err, services.Forbidden)
	require.NoError(t, f.campaigns.Delete(ctx, f.owner, c.ID))
	_, err = f.campaigns.Get(ctx, c.ID)
	require.ErrorIs(t, err, services.NotFound)
	require.ErrorIs(t, f.campaigns.Delete(ctx, f.owner, c.ID), services.NotFound)

	logs := f.store.AuditLogs()
	require.NotEmpty(t, logs)
	last := logs[len(logs)-1]
	require.Equal(t, "deleted", last.Action)
	require.Equal(t, c.ID, *last.EntityID)

	active := f.active(t, "1000", "10", "100")
	require.ErrorIs(t, f.campaigns.Delete(ctx, f.owner, active.ID), services.InvalidStateTransition)

	// A draft holding investment rows is ledger history and stays.
	withRows := f.draft(t, "1000", "10", "100")
	require.NoError(t, f.store.WithTx(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.InsertInvestment(ctx, models.Investment{
			UserID: f.alice.ID, CampaignID: withRows.ID, Amount: dec("50"), Status: models.InvestmentCancelled,
		})
		return err
	}))
	err = f.campaigns.Delete(ctx, f.admin, withRows.ID)
	require.ErrorIs(t, err, services.InvalidStateTransition)
	_, err = f.campaigns.Get(ctx, withRows.ID)
	require.NoError(t, err)
}

func TestRestaurantDelete(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()

	draft := f.draft(t, "1000", "10", "1000")
	active := f.active(t, "1000", "10", "1000")

	err := f.restaurants.Delete(ctx, services.Actor{UserID: f.bob.ID, Role: models.RoleRestaurantOwner}, f.restaurant.ID)
	require.ErrorIs(t, err, services.Forbidden)
	require.ErrorIs(t, f.restaurants.Delete(ctx, f.owner, f.restaurant.ID), services.InvalidStateTransition)

	require.NoError(t, f.campaigns.Delete(ctx, f.owner, draft.ID))
	require.ErrorIs(t, f.restaurants.Delete(ctx, f.owner, f.restaurant.ID), services.InvalidStateTransition)

	_, err = f.investments.Submit(ctx, f.alice.ID, active.ID, dec("1000"))
	require.NoError(t, err)
	funded, err := f.campaigns.Get(ctx, active.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignFunded, funded.Status)

	require.NoError(t, f.restaurants.Delete(ctx, f.owner, f.restaurant.ID))

	_, err = f.restaurants.Get(ctx, f.restaurant.ID)
	require.ErrorIs(t, err, services.NotFound)
	list, err := f.restaurants.List(ctx, models.RestaurantFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
	_, err = f.restaurants.Update(ctx, f.owner, f.restaurant.ID, services.RestaurantInput{Name: "Back"})
	require.ErrorIs(t, err, services.NotFound)
	require.ErrorIs(t, f.restaurants.Delete(ctx, f.owner, f.restaurant.ID), services.NotFound)

	_, err = f.campaigns.Create(ctx, f.owner, services.CampaignInput{
		RestaurantID: f.restaurant.ID, Title: "After", GoalAmount: dec("10"), MinInvestment: dec("1"),
		MaxInvestment: dec("10"), StartDate: f.clock.Now(), EndDate: f.clock.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, services.NotFound)

	// Investors keep their history.
	mine, err := f.investments.ListByUser(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Trattoria Uno", mine[0].RestaurantName)
	kept, err := f.campaigns.Get(ctx, active.ID)
	require.NoError(t, err)
	require.Equal(t, "Trattoria Uno", kept.RestaurantName)
}

func TestCampaignCancel_FailsPendingInvestments(t *testing.T) {
	f := newFixture(t, services.SettleManual)
	ctx := context.Background()
	c := f.active(t, "1000", "10", "500")

	inv, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("100"))
	require.NoError(t, err)

	_, err = f.campaigns.Cancel(ctx, services.Actor{UserID: f.bob.ID, Role: models.RoleInvestor}, c.ID)
	require.ErrorIs(t, err, services.Forbidden)

	cancelled, err := f.campaigns.Cancel(ctx, f.owner, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignCancelled, cancelled.Status)

	v, err := f.investments.Get(ctx, f.admin, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvestmentFailed, v.Status)

	var actions []string
	for _, l := range f.store.AuditLogs() {
		if l.EntityType == "campaign" && *l.EntityID == c.ID {
			actions = append(actions, l.Action)
		}
	}
	require.Equal(t, []string{"status_change", "status_change"}, actions)
}

func TestCampaignExpiry(t *testing.T) {
	f := newFixture(t, services.SettleManual)
	ctx := context.Background()
	c := f.active(t, "1000", "10", "500")

	pending, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("100"))
	require.NoError(t, err)

	changed, err := f.campaigns.Expire(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, changed, "campaign window still open")

	f.clock.Advance(31 * 24 * time.Hour)
	due, err := f.campaigns.DueForExpiry(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	// reads settle an expired campaign on the spot
	v, err := f.campaigns.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CampaignFailed, v.Status)

	changed, err = f.campaigns.Expire(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, changed)

	inv, err := f.investments.Get(ctx, f.admin, pending.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvestmentFailed, inv.Status)

	due, err = f.campaigns.DueForExpiry(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestCampaignList_FiltersAndExpires(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	f.draft(t, "1000", "10", "100")
	live := f.active(t, "1000", "10", "100")

	active, err := f.campaigns.List(ctx, models.CampaignFilter{Status: models.CampaignActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, live.ID, active[0].ID)
	require.Equal(t, "Trattoria Uno", active[0].RestaurantName)

	_, err = f.campaigns.List(ctx, models.CampaignFilter{Status: "bogus"})
	require.ErrorIs(t, err, services.InvalidInput)

	f.clock.Advance(31 * 24 * time.Hour)
	all, err := f.campaigns.List(ctx, models.CampaignFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, v := range all {
		require.NotEqual(t, models.CampaignActive, v.Status)
	}

	byRestaurant, err := f.restaurants.Campaigns(ctx, f.restaurant.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, byRestaurant, 2)
}

func TestCampaignInvestments_OwnerOnly(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()
	c := f.active(t, "1000", "10", "100")
	_, err := f.investments.Submit(ctx, f.alice.ID, c.ID, dec("50"))
	require.NoError(t, err)

	got, err := f.campaigns.Investments(ctx, f.owner, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = f.campaigns.Investments(ctx, services.Actor{UserID: f.alice.ID, Role: models.RoleInvestor}, c.ID)
	require.ErrorIs(t, err, services.Forbidden)
}

func TestUserService(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()

	_, err := f.users.Register(ctx, "ALICE@example.com", "Alice Again", "another-pass", models.RoleInvestor)
	require.ErrorIs(t, err, services.Conflict)

	_, err = f.users.Register(ctx, "root@example.com", "Root", "another-pass", models.RoleAdmin)
	require.ErrorIs(t, err, services.InvalidInput)

	_, err = f.users.Register(ctx, "short@example.com", "Shorty", "abc", models.RoleInvestor)
	require.ErrorIs(t, err, services.InvalidInput)

	u, err := f.users.Authenticate(ctx, "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, u.ID)

	_, err = f.users.Authenticate(ctx, "alice@example.com", "wrong-pass")
	require.ErrorIs(t, err, services.Unauthorized)
	_, err = f.users.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, services.Unauthorized)
}

func TestRestaurantService(t *testing.T) {
	f := newFixture(t, services.SettleImmediate)
	ctx := context.Background()

	_, err := f.restaurants.Create(ctx, services.Actor{UserID: f.alice.ID, Role: models.RoleInvestor},
		services.RestaurantInput{Name: "Nope"})
	require.ErrorIs(t, err, services.Forbidden)

	_, err = f.restaurants.Update(ctx, services.Actor{UserID: f.bob.ID, Role: models.RoleRestaurantOwner},
		f.restaurant.ID, services.RestaurantInput{Name: "Hijacked"})
	require.ErrorIs(t, err, services.Forbidden)

	upd, err := f.restaurants.Update(ctx, f.owner, f.restaurant.ID,
		services.RestaurantInput{Name: "Trattoria Due", CuisineType: "italian", Location: "Izmir"})
	require.NoError(t, err)
	require.Equal(t, "Trattoria Due", upd.Name)

	list, err := f.restaurants.List(ctx, models.RestaurantFilter{Location: "izm"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.restaurants.Get(ctx, "missing")
	require.ErrorIs(t, err, services.NotFound)
}
