package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tastyfund/backend/internal/repository"
)

// translate maps driver errors onto the repository sentinels so callers never import pgx.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.Message)
		case "22003":
			return fmt.Errorf("%w: %s", repository.ErrInvalid, pgErr.Message)
		case "22P02":
			// malformed uuid in a lookup
			return repository.ErrNotFound
		}
	}
	return err
}
