package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tastyfund/backend/internal/metrics"
	"github.com/tastyfund/backend/internal/models"
	repo "github.com/tastyfund/backend/internal/repository"
)

const defaultTxAttempts = 3

// Actor is an identity already resolved by the auth middleware.
type Actor struct {
	UserID string
	Role   models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Owns reports whether the actor may manage the restaurant and its campaigns.
func (a Actor) Owns(r models.Restaurant) bool {
	return a.IsAdmin() || (a.UserID != "" && r.OwnerID == a.UserID)
}

// runTx executes fn in a ledger transaction, retrying when the database aborts it for a
// serialization conflict or deadlock. Business-rule errors are never retried.
func runTx(ctx context.Context, l repo.Ledger, attempts int, fn func(repo.LedgerTx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := l.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, repo.ErrConflict) || attempt >= attempts {
			return err
		}
		metrics.LedgerRetries.Inc()
		slog.WarnContext(ctx, "ledger tx conflict, retrying", "attempt", attempt, "err", err)
	}
}

func audit(ctx context.Context, tx repo.LedgerTx, entityType, entityID, actorID, action string, details map[string]any) error {
	l := models.AuditLog{
		EntityType: entityType,
		EntityID:   &entityID,
		Action:     action,
		Details:    details,
	}
	if actorID != "" {
		l.ActorID = &actorID
	}
	return tx.AppendAudit(ctx, l)
}
