package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/services"
)

type SheetHandler struct {
	sheets   *services.SheetService
	closing  *services.ClosingService
	validate *validator.Validate
	logger   logrus.FieldLogger
}

func NewSheetHandler(sheets *services.SheetService, closing *services.ClosingService, validate *validator.Validate, logger logrus.FieldLogger) *SheetHandler {
	return &SheetHandler{
		sheets:   sheets,
		closing:  closing,
		validate: validate,
		logger:   logger,
	}
}

// CreateOrGet returns the sheet of the requested date (today when omitted),
// creating it on first use.
func (h *SheetHandler) CreateOrGet(w http.ResponseWriter, r *http.Request) {
	var request createSheetRequest
	if r.ContentLength != 0 {
		if details := decodeRequest(w, r, h.validate, &request); details != nil {
			respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
			return
		}
	}

	sheet, err := h.sheets.CreateOrGet(r.Context(), request.Date)
	if err != nil {
		respondWithServiceError(w, h.logger, "CreateOrGet", "Failed to create or fetch sheet", err)
		return
	}
	respondWithJSON(w, http.StatusOK, sheet)
}

func (h *SheetHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.sheets.GetByDate(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		if errors.Is(err, services.ErrSheetNotFound) {
			respondWithError(w, http.StatusNotFound, "Sheet not found for the specified date")
			return
		}
		respondWithServiceError(w, h.logger, "GetByDate", "Failed to fetch sheet", err)
		return
	}
	respondWithJSON(w, http.StatusOK, sheet)
}

func (h *SheetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	var request updateSheetRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}
	if request.OpeningCash != nil && request.OpeningCash.IsNegative() {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request data",
			Details: []string{"opening_cash: gte"},
		})
		return
	}

	sheet, err := h.sheets.Update(r.Context(), id, request.SheetNote, request.OpeningCash)
	if err != nil {
		respondWithServiceError(w, h.logger, "Update", "Failed to update sheet", err)
		return
	}
	respondWithJSON(w, http.StatusOK, sheet)
}

func (h *SheetHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	day, err := h.closing.Reconcile(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, "Reconciliation", "Failed to reconcile sheet", err)
		return
	}
	respondWithJSON(w, http.StatusOK, day)
}

// Close closes the day. When a readiness check fails the response is a 409
// carrying the reconciliation so the client can show what is missing.
func (h *SheetHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	var request closeSheetRequest
	if r.ContentLength != 0 {
		if details := decodeRequest(w, r, h.validate, &request); details != nil {
			respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
			return
		}
	}

	day, err := h.closing.Close(r.Context(), id, request.Notes)
	if errors.Is(err, services.ErrNotReadyToClose) {
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"error":          "Sheet is not ready to close",
			"reconciliation": day,
		})
		return
	}
	if err != nil {
		respondWithServiceError(w, h.logger, "Close", "Failed to close sheet", err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Day closed successfully", Data: day})
}
