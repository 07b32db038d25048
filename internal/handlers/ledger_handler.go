package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/ledger"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/services"
)

const (
	csvContentType    = "text/csv; charset=utf-8"
	defaultMatchLimit = 5
)

type LedgerHandler struct {
	ledger   *services.LedgerService
	validate *validator.Validate
	logger   logrus.FieldLogger
}

func NewLedgerHandler(ledger *services.LedgerService, validate *validator.Validate, logger logrus.FieldLogger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, validate: validate, logger: logger}
}

func (h *LedgerHandler) CreateDebtor(w http.ResponseWriter, r *http.Request) {
	var request debtorRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}

	debtor, err := h.ledger.AddDebtor(r.Context(), models.Debtor{
		Date:      request.Date,
		SerialNo:  request.SerialNo,
		PartyName: request.PartyName,
		Salesman:  request.Salesman,
		BillNo:    request.BillNo,
		Amount:    request.Amount,
		Notes:     request.Notes,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, "CreateDebtor", "Failed to save debtor", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, debtor)
}

// ListDebtors lists debtors filtered by ?date= and ?q=. With ?format=csv the
// list is returned as a CSV download.
func (h *LedgerHandler) ListDebtors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	debtors, err := h.ledger.Debtors(r.Context(), query.Get("date"), query.Get("q"))
	if err != nil {
		respondWithServiceError(w, h.logger, "ListDebtors", "Failed to fetch debtors", err)
		return
	}

	if query.Get("format") == "csv" {
		var buf bytes.Buffer
		if err := ledger.WriteDebtorsCSV(&buf, debtors); err != nil {
			respondWithServiceError(w, h.logger, "ListDebtors", "Failed to export debtors", err)
			return
		}
		writeCSV(w, "debtors", query.Get("date"), buf.Bytes())
		return
	}

	if debtors == nil {
		debtors = []models.Debtor{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"debtors": debtors,
		"totals":  ledger.DebtorTotals(debtors),
	})
}

func (h *LedgerHandler) PendingDebtors(w http.ResponseWriter, r *http.Request) {
	debtors, totals, err := h.ledger.Pending(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "PendingDebtors", "Failed to fetch pending debtors", err)
		return
	}
	if debtors == nil {
		debtors = []models.Debtor{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"debtors": debtors,
		"totals":  totals,
	})
}

func (h *LedgerHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var request collectionRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}

	collection, err := h.ledger.AddCollection(r.Context(), models.Collection{
		Date:        request.Date,
		SerialNo:    request.SerialNo,
		DebtorID:    request.DebtorID,
		PartyName:   request.PartyName,
		Salesman:    request.Salesman,
		BillNo:      request.BillNo,
		Amount:      request.Amount,
		PaymentMode: request.PaymentMode,
		Notes:       request.Notes,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, "CreateCollection", "Failed to save collection", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, collection)
}

// MatchCollection suggests pending debtors for a payment without recording it.
func (h *LedgerHandler) MatchCollection(w http.ResponseWriter, r *http.Request) {
	var request matchRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}
	if request.Limit == 0 {
		request.Limit = defaultMatchLimit
	}

	matches, err := h.ledger.MatchCollection(r.Context(), models.Collection{
		Date:      request.Date,
		PartyName: request.PartyName,
		BillNo:    request.BillNo,
		Amount:    request.Amount,
	}, request.Limit)
	if err != nil {
		respondWithServiceError(w, h.logger, "MatchCollection", "Failed to match collection", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (h *LedgerHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	collections, err := h.ledger.Collections(r.Context(), query.Get("date"))
	if err != nil {
		respondWithServiceError(w, h.logger, "ListCollections", "Failed to fetch collections", err)
		return
	}

	if query.Get("format") == "csv" {
		var buf bytes.Buffer
		if err := ledger.WriteCollectionsCSV(&buf, collections); err != nil {
			respondWithServiceError(w, h.logger, "ListCollections", "Failed to export collections", err)
			return
		}
		writeCSV(w, "collections", query.Get("date"), buf.Bytes())
		return
	}

	if collections == nil {
		collections = []models.Collection{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"collections": collections,
		"total":       ledger.CollectionTotal(collections).StringFixed(2),
		"count":       len(collections),
	})
}

func (h *LedgerHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var request expenseRequest
	if details := decodeRequest(w, r, h.validate, &request); details != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: details})
		return
	}

	expense, err := h.ledger.AddExpense(r.Context(), models.Expense{
		Date:     request.Date,
		Time:     request.Time,
		Purpose:  request.Purpose,
		Amount:   request.Amount,
		Category: request.Category,
		Notes:    request.Notes,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, "CreateExpense", "Failed to save expense", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, expense)
}

func (h *LedgerHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.ledger.Expenses(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondWithServiceError(w, h.logger, "ListExpenses", "Failed to fetch expenses", err)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"total":    ledger.ExpenseTotal(expenses).StringFixed(2),
	})
}

func (h *LedgerHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid expense ID")
		return
	}

	if err := h.ledger.DeleteExpense(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, "DeleteExpense", "Failed to delete expense", err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Expense deleted successfully"})
}

func writeCSV(w http.ResponseWriter, name, date string, body []byte) {
	if date == "" {
		date = "all"
	}
	w.Header().Set("Content-Type", csvContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`, name, date))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
