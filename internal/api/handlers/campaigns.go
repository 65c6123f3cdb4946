package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tastyfund/backend/internal/api/httpx"
	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/services"
)

type CampaignHandler struct {
	Svc         *services.CampaignService
	Investments *services.InvestmentService
}

func NewCampaignHandler(cs *services.CampaignService, is *services.InvestmentService) *CampaignHandler {
	return &CampaignHandler{Svc: cs, Investments: is}
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context(), models.CampaignFilter{
		Status:       models.CampaignStatus(r.URL.Query().Get("status")),
		RestaurantID: r.URL.Query().Get("restaurant_id"),
		Limit:        httpx.IntQuery(r, "limit", 0),
		Offset:       httpx.IntQuery(r, "offset", 0),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CampaignHandler) Summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.Investments.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CampaignInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	out, err := h.Svc.Create(r.Context(), actor(r), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.CampaignInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	out, err := h.Svc.Update(r.Context(), actor(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CampaignHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Publish)
}

func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Cancel)
}

func (h *CampaignHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Close)
}

// Delete removes an untouched draft.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "campaign deleted"})
}

func (h *CampaignHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, services.Actor, string) (models.Campaign, error)) {
	out, err := fn(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CampaignHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Investments(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
