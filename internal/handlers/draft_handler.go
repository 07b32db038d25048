package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/services"
)

type DraftHandler struct {
	drafts *services.DraftService
	logger logrus.FieldLogger
}

func NewDraftHandler(drafts *services.DraftService, logger logrus.FieldLogger) *DraftHandler {
	return &DraftHandler{drafts: drafts, logger: logger}
}

func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	dates, err := h.drafts.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "ListDrafts", "Failed to list drafts", err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"dates": dates})
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	draft, err := h.drafts.Get(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		respondWithServiceError(w, h.logger, "GetDraft", "Failed to load draft", err)
		return
	}
	respondWithJSON(w, http.StatusOK, draft)
}

func (h *DraftHandler) Put(w http.ResponseWriter, r *http.Request) {
	var draft drafts.Draft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&draft); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	saved, err := h.drafts.Put(r.Context(), mux.Vars(r)["date"], draft)
	if err != nil {
		respondWithServiceError(w, h.logger, "PutDraft", "Failed to save draft", err)
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), mux.Vars(r)["date"]); err != nil {
		respondWithServiceError(w, h.logger, "DeleteDraft", "Failed to clear draft", err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Draft cleared"})
}
