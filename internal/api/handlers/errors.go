package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tastyfund/backend/internal/api/httpx"
	"github.com/tastyfund/backend/internal/middleware"
	"github.com/tastyfund/backend/internal/services"
	"github.com/tastyfund/backend/internal/validate"
)

var kindStatus = map[services.Kind]int{
	services.InvalidInput:           http.StatusBadRequest,
	services.Unauthorized:           http.StatusUnauthorized,
	services.Forbidden:              http.StatusForbidden,
	services.NotFound:               http.StatusNotFound,
	services.Conflict:               http.StatusConflict,
	services.CampaignNotActive:      http.StatusConflict,
	services.CampaignEnded:          http.StatusConflict,
	services.BelowMinimum:           http.StatusUnprocessableEntity,
	services.AboveMaximum:           http.StatusUnprocessableEntity,
	services.ExceedsGoal:            http.StatusUnprocessableEntity,
	services.InvalidStateTransition: http.StatusConflict,
	services.StorageError:           http.StatusServiceUnavailable,
}

// writeErr maps a service error onto its status and stable code.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		msg = "internal error"
	}
	if kind == services.StorageError {
		slog.ErrorContext(r.Context(), "storage failure",
			"err", err, "path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()))
		if svcErr != nil {
			msg = svcErr.Msg
		}
	}
	var details interface{}
	var fields validate.Errs
	if errors.As(err, &fields) {
		details = fields
	}
	httpx.WriteError(w, status, string(kind), msg, details)
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, string(services.InvalidInput), msg, nil)
}

// actor converts the authenticated caller into a service Actor.
func actor(r *http.Request) services.Actor {
	u, _ := middleware.FromCtx(r.Context())
	return services.Actor{UserID: u.UserID, Role: u.Role}
}
