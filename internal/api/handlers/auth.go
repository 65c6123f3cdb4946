package handlers

import (
	"net/http"
	"time"

	"github.com/tastyfund/backend/internal/api/httpx"
	"github.com/tastyfund/backend/internal/auth"
	"github.com/tastyfund/backend/internal/models"
	"github.com/tastyfund/backend/internal/services"
)

type AuthHandler struct {
	TM    *auth.TokenManager
	Users *services.UserService
}

func NewAuthHandler(tm *auth.TokenManager, us *services.UserService) *AuthHandler {
	return &AuthHandler{TM: tm, Users: us}
}

type registerReq struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role,omitempty"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"` // seconds until the access token expires
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, u *models.User, userID string, role models.Role) {
	access, refresh, exp, err := h.TM.GeneratePair(userID, role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, status, tokenResp{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Truncate(time.Second).Seconds()),
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	u, err := h.Users.Register(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.issue(w, http.StatusCreated, &u, u.ID, u.Role)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.issue(w, http.StatusOK, &u, u.ID, u.Role)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		badRequest(w, "invalid request")
		return
	}
	claims, isRefresh, err := h.TM.ParseAny(req.RefreshToken)
	if err != nil || !isRefresh {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	// role may have changed since the refresh token was issued
	u, err := h.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	h.issue(w, http.StatusOK, nil, u.ID, u.Role)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), actor(r).UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
