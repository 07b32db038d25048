package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/services"
)

type EntryHandler struct {
	entries       *services.EntryService
	denominations *services.DenominationService
	validate      *validator.Validate
	logger        logrus.FieldLogger
}

func NewEntryHandler(entries *services.EntryService, denominations *services.DenominationService, validate *validator.Validate, logger logrus.FieldLogger) *EntryHandler {
	return &EntryHandler{
		entries:       entries,
		denominations: denominations,
		validate:      validate,
		logger:        logger,
	}
}

type savedEntry struct {
	ID      int64  `json:"id"`
	CellKey string `json:"cell_key"`
}

type savedDenomination struct {
	ID                int64  `json:"id"`
	DenominationValue int    `json:"denomination_value"`
	Pieces            int    `json:"pieces"`
	CalculatedAmount  string `json:"calculated_amount"`
}

func (h *EntryHandler) SaveEntries(w http.ResponseWriter, r *http.Request) {
	var request saveEntriesRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}

	saved, err := h.entries.Save(r.Context(), request.SheetID, request.models())
	if err != nil {
		respondWithServiceError(w, h.logger, "SaveEntries", "Failed to save entries", err)
		return
	}

	results := make([]savedEntry, 0, len(saved))
	for _, e := range saved {
		results = append(results, savedEntry{ID: e.ID, CellKey: e.CellKey})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Entries saved successfully",
		"count":   len(results),
		"entries": results,
	})
}

func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := pathID(r, "sheetId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	entries, err := h.entries.List(r.Context(), sheetID)
	if err != nil {
		respondWithServiceError(w, h.logger, "ListEntries", "Failed to fetch entries", err)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	respondWithJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) DeleteEntries(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := pathID(r, "sheetId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	count, err := h.entries.DeleteAll(r.Context(), sheetID)
	if err != nil {
		respondWithServiceError(w, h.logger, "DeleteEntries", "Failed to delete entries", err)
		return
	}
	respondWithJSON(w, http.StatusOK, countResponse{Message: "Entries deleted successfully", Count: count})
}

func (h *EntryHandler) SaveDenominations(w http.ResponseWriter, r *http.Request) {
	var request saveDenominationsRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}

	saved, err := h.denominations.Save(r.Context(), request.SheetID, request.models())
	if err != nil {
		respondWithServiceError(w, h.logger, "SaveDenominations", "Failed to save denominations", err)
		return
	}

	results := make([]savedDenomination, 0, len(saved))
	for _, d := range saved {
		results = append(results, savedDenomination{
			ID:                d.ID,
			DenominationValue: d.DenominationValue,
			Pieces:            d.Pieces,
			CalculatedAmount:  d.CalculatedAmount.StringFixed(2),
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Denominations saved successfully",
		"count":         len(results),
		"denominations": results,
	})
}

func (h *EntryHandler) ListDenominations(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := pathID(r, "sheetId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	denominations, err := h.denominations.List(r.Context(), sheetID)
	if err != nil {
		respondWithServiceError(w, h.logger, "ListDenominations", "Failed to fetch denominations", err)
		return
	}
	if denominations == nil {
		denominations = []models.Denomination{}
	}
	respondWithJSON(w, http.StatusOK, denominations)
}

func (h *EntryHandler) DeleteDenominations(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := pathID(r, "sheetId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	count, err := h.denominations.DeleteAll(r.Context(), sheetID)
	if err != nil {
		respondWithServiceError(w, h.logger, "DeleteDenominations", "Failed to delete denominations", err)
		return
	}
	respondWithJSON(w, http.StatusOK, countResponse{Message: "Denominations deleted successfully", Count: count})
}
