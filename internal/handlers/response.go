package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/config"
	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/services"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type countResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithServiceError maps service errors to status codes. Anything not
// recognised is logged and reported as fallback with a 500.
func respondWithServiceError(w http.ResponseWriter, logger logrus.FieldLogger, funcName, fallback string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: verr.Errors})
	case errors.Is(err, services.ErrInvalidDate):
		respondWithError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
	case errors.Is(err, services.ErrSheetNotFound):
		respondWithError(w, http.StatusNotFound, "Sheet not found")
	case errors.Is(err, services.ErrDebtorNotFound):
		respondWithError(w, http.StatusNotFound, "Debtor not found")
	case errors.Is(err, services.ErrExpenseNotFound):
		respondWithError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, drafts.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Draft not found")
	case errors.Is(err, services.ErrSheetClosed):
		respondWithError(w, http.StatusConflict, "Sheet is closed")
	case errors.Is(err, services.ErrDebtorAlreadyPaid):
		respondWithError(w, http.StatusConflict, "Debtor is already paid")
	case errors.Is(err, services.ErrNotReadyToClose):
		respondWithError(w, http.StatusConflict, "Sheet is not ready to close")
	default:
		config.LogError(logger, "handlers", funcName, fallback, nil, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}
