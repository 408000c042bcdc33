package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-prayer-verify/internal/application/setting"
	"github.com/go-prayer-verify/internal/transport/http/middleware"
)

// SettingHandler exposes admin feature flags.
type SettingHandler struct {
	svc setting.Service
}

func NewSettingHandler(svc setting.Service) *SettingHandler { return &SettingHandler{svc: svc} }

type updateSettingRequest struct {
	Value *bool `json:"value"`
}

func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SettingHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req updateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "value is required")
		return
	}
	st, err := h.svc.Set(r.Context(), chi.URLParam(r, "key"), *req.Value, claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
