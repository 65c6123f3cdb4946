package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tastyfund/backend/internal/api/httpx"
	"github.com/tastyfund/backend/internal/services"
	"github.com/tastyfund/backend/internal/validate"
)

type InvestmentHandler struct {
	Svc *services.InvestmentService
}

func NewInvestmentHandler(s *services.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{Svc: s}
}

type submitReq struct {
	CampaignID string          `json:"campaign_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// Submit pledges an amount against a campaign on behalf of the authenticated caller.
func (h *InvestmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "amount must be a number and campaign_id a string")
		return
	}
	if f := validate.UUID("campaign_id", req.CampaignID); f != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(services.InvalidInput), f.Field+": "+f.Msg, validate.Errs{*f})
		return
	}
	inv, err := h.Svc.Submit(r.Context(), actor(r).UserID, req.CampaignID, req.Amount)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, inv)
}

func (h *InvestmentHandler) Mine(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListByUser(r.Context(), actor(r).UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *InvestmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *InvestmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Cancel(r.Context(), actor(r).UserID, chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "investment cancelled"})
}

func (h *InvestmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Confirm(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *InvestmentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Fail(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
