package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tastyfund/backend/internal/api/httpx"
	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/services"
)

type RestaurantHandler struct {
	Svc *services.RestaurantService
}

func NewRestaurantHandler(s *services.RestaurantService) *RestaurantHandler {
	return &RestaurantHandler{Svc: s}
}

func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.Svc.List(r.Context(), models.RestaurantFilter{
		CuisineType: q.Get("cuisine_type"),
		Location:    q.Get("location"),
		Limit:       httpx.IntQuery(r, "limit", 0),
		Offset:      httpx.IntQuery(r, "offset", 0),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.RestaurantInput
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

func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.RestaurantInput
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

func (h *RestaurantHandler) Campaigns(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Campaigns(r.Context(), chi.URLParam(r, "id"),
		httpx.IntQuery(r, "limit", 0), httpx.IntQuery(r, "offset", 0))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *RestaurantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "restaurant deleted"})
}
