package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
	"daily-sheet-service/internal/models"
)

const maxBodyBytes = 1 << 20

type createSheetRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type updateSheetRequest struct {
	SheetNote   *string          `json:"sheet_note" validate:"omitempty,max=1000"`
	OpeningCash *decimal.Decimal `json:"opening_cash"`
}

type closeSheetRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

type entryInput struct {
	Section         string          `json:"section" validate:"required,oneof=POS KQR KSW DEBTOR"`
	RowIdx          int             `json:"row_idx" validate:"gte=0"`
	CellKey         string          `json:"cell_key" validate:"required,cellkey"`
	RawValue        string          `json:"raw_value" validate:"max=500"`
	CalculatedValue string          `json:"calculated_value" validate:"max=500"`
	Metadata        json.RawMessage `json:"metadata"`
}

type saveEntriesRequest struct {
	SheetID int64        `json:"sheetId" validate:"required,gt=0"`
	Entries []entryInput `json:"entries" validate:"required,dive"`
}

func (r saveEntriesRequest) models() []models.Entry {
	entries := make([]models.Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, models.Entry{
			Section:         e.Section,
			RowIdx:          e.RowIdx,
			CellKey:         e.CellKey,
			RawValue:        e.RawValue,
			CalculatedValue: e.CalculatedValue,
			Metadata:        e.Metadata,
		})
	}
	return entries
}

type denominationInput struct {
	DenominationValue int    `json:"denomination_value" validate:"gte=0"`
	DenominationLabel string `json:"denomination_label" validate:"max=20"`
	Pieces            int    `json:"pieces" validate:"gte=0"`
}

type saveDenominationsRequest struct {
	SheetID       int64               `json:"sheetId" validate:"required,gt=0"`
	Denominations []denominationInput `json:"denominations" validate:"required,dive"`
}

func (r saveDenominationsRequest) models() []models.Denomination {
	denominations := make([]models.Denomination, 0, len(r.Denominations))
	for _, d := range r.Denominations {
		denominations = append(denominations, models.Denomination{
			DenominationValue: d.DenominationValue,
			DenominationLabel: d.DenominationLabel,
			Pieces:            d.Pieces,
		})
	}
	return denominations
}

type debtorRequest struct {
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	SerialNo  int             `json:"serialNo" validate:"gte=0"`
	PartyName string          `json:"partyName" validate:"required,max=200"`
	Salesman  string          `json:"salesman" validate:"max=100"`
	BillNo    string          `json:"billNo" validate:"max=50"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes" validate:"max=1000"`
}

type collectionRequest struct {
	Date        string          `json:"collectionDate" validate:"omitempty,datetime=2006-01-02"`
	SerialNo    int             `json:"serialNo" validate:"gte=0"`
	DebtorID    *int64          `json:"debtorId" validate:"omitempty,gt=0"`
	PartyName   string          `json:"partyName" validate:"required_without=DebtorID,max=200"`
	Salesman    string          `json:"salesman" validate:"max=100"`
	BillNo      string          `json:"billNo" validate:"max=50"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"paymentMode" validate:"max=20"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

type matchRequest struct {
	Date      string          `json:"collectionDate" validate:"omitempty,datetime=2006-01-02"`
	PartyName string          `json:"partyName" validate:"max=200"`
	BillNo    string          `json:"billNo" validate:"max=50"`
	Amount    decimal.Decimal `json:"amount"`
	Limit     int             `json:"limit" validate:"gte=0,lte=20"`
}

type expenseRequest struct {
	Date     string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time     string          `json:"time" validate:"omitempty,datetime=15:04"`
	Purpose  string          `json:"purpose" validate:"required,max=200"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category" validate:"max=50"`
	Notes    string          `json:"notes" validate:"max=1000"`
}

// newRequestValidator returns a validator that knows the cellkey rule and
// reports fields by their JSON names.
func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("cellkey", func(fl validator.FieldLevel) bool {
		return cellkey.IsWireKey(fl.Field().String())
	})
	return v
}

// decodeRequest reads a JSON body into dst and validates it. The returned
// details are ready to be shown to the client.
func decodeRequest(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) []string {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return []string{"malformed JSON body"}
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{err.Error()}
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fmt.Sprintf("%s: %s", fieldPath(fe.Namespace()), fe.Tag()))
		}
		return details
	}
	return nil
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
