package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-sheet-service/internal/config"
	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/services"
)

var (
	sheetCols = []string{
		"id", "sheet_date", "sheet_note", "opening_cash", "closing_cash_amount",
		"system_expected_cash", "difference", "is_closed", "closure_notes", "closed_at",
		"created_at", "updated_at",
	}
	debtorCols = []string{
		"id", "debtor_date", "serial_no", "party_name", "salesman", "bill_no", "amount",
		"status", "collected_on", "collection_serial", "notes", "created_at",
	}
	sheetDay = time.Date(2024, 1, 26, 0, 0, 0, 0, time.UTC)
	stamp    = time.Date(2024, 1, 26, 18, 0, 0, 0, time.UTC)
)

func testConfig() *config.Config {
	return &config.Config{
		Sheet: config.SheetConfig{RowLimit: 25, LookAheadDays: 30, LookBackDays: 365},
		CORS:  config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return routerFor(db, cfg), mock
}

func routerFor(db *sql.DB, cfg *config.Config) http.Handler {
	logger, _ := logtest.NewNullLogger()
	draftService := services.NewDraftService(drafts.NewMemoryStore(), 0, logger)
	return SetupRouter(db, cfg, draftService, logger)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sheetRow(id int64, openingCash string, closed bool) *sqlmock.Rows {
	return sqlmock.NewRows(sheetCols).
		AddRow(id, sheetDay, nil, openingCash, nil, nil, nil, closed, nil, nil, stamp, stamp)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rec := serve(router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decode(t, rec)
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestReportUnknownSheet(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(99999)).
		WillReturnRows(sqlmock.NewRows(sheetCols))

	rec := serve(router, http.MethodGet, "/api/reports/99999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sheet not found", decode(t, rec)["error"])
}

func TestCreateSheet(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sheet_date = ?")).
		WithArgs("2024-01-26").
		WillReturnRows(sheetRow(7, "0.00", false))

	rec := serve(router, http.MethodPost, "/api/sheets", `{"date":"2024-01-26"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(7), body["sheetId"])
	assert.Equal(t, "2024-01-26", body["date"])
	assert.Nil(t, body["note"])
}

func TestCreateSheetBadDate(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rec := serve(router, http.MethodPost, "/api/sheets", `{"date":"26/01/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request data", decode(t, rec)["error"])
}

func TestGetSheetByDateNotFound(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sheet_date = ?")).
		WithArgs("2024-01-27").
		WillReturnRows(sqlmock.NewRows(sheetCols))

	rec := serve(router, http.MethodGet, "/api/sheets/2024-01-27", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sheet not found for the specified date", decode(t, rec)["error"])
}

func TestSaveEntriesRejectsRequest(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "missing sheet", body: `{"entries":[]}`, detail: "sheetId: required"},
		{name: "missing entries", body: `{"sheetId":7}`, detail: "entries: required"},
		{name: "bad cell key", body: `{"sheetId":7,"entries":[{"section":"POS","row_idx":0,"cell_key":"pos-0","raw_value":"1"}]}`, detail: "entries[0].cell_key: cellkey"},
		{name: "bad section", body: `{"sheetId":7,"entries":[{"section":"CARD","row_idx":0,"cell_key":"POS_AMOUNT_0"}]}`, detail: "entries[0].section: oneof"},
		{name: "malformed", body: `{"sheetId":`, detail: "malformed JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/api/entries", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Invalid request data", body.Error)
			assert.Contains(t, body.Details, tt.detail)
		})
	}
}

func TestSaveEntriesUnknownSheet(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(99999)).
		WillReturnRows(sqlmock.NewRows(sheetCols))

	rec := serve(router, http.MethodPost, "/api/entries",
		`{"sheetId":99999,"entries":[{"section":"POS","row_idx":0,"cell_key":"POS_AMOUNT_0","raw_value":"100","calculated_value":"100"}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Sheet not found", decode(t, rec)["error"])
}

func TestSaveEntries(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sheetRow(7, "0.00", false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WithArgs(int64(7), "POS", 0, "POS_AMOUNT_0", "=1000+1500", "2500", `{"type":"sale"}`).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	rec := serve(router, http.MethodPost, "/api/entries",
		`{"sheetId":7,"entries":[{"section":"POS","row_idx":0,"cell_key":"POS_AMOUNT_0","raw_value":"=1000+1500","calculated_value":"2500","metadata":{"type":"sale"}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Entries saved successfully", body["message"])
	assert.Equal(t, float64(1), body["count"])
	entries := body["entries"].([]interface{})
	assert.Equal(t, map[string]interface{}{"id": float64(41), "cell_key": "POS_AMOUNT_0"}, entries[0])
}

func TestSaveEntriesWithPartyName(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sheetRow(7, "0.00", false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WithArgs(int64(7), "DEBTOR", 0, "DEBTOR_PARTY_0", "Ravi Traders", "Ravi Traders", nil).
		WillReturnResult(sqlmock.NewResult(61, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO entries")).
		WithArgs(int64(7), "DEBTOR", 0, "DEBTOR_AMOUNT_0", "300", "300", nil).
		WillReturnResult(sqlmock.NewResult(62, 1))
	mock.ExpectCommit()

	rec := serve(router, http.MethodPost, "/api/entries",
		`{"sheetId":7,"entries":[`+
			`{"section":"DEBTOR","row_idx":0,"cell_key":"DEBTOR_PARTY_0","raw_value":"Ravi Traders"},`+
			`{"section":"DEBTOR","row_idx":0,"cell_key":"DEBTOR_AMOUNT_0","raw_value":"300","calculated_value":"300"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["count"])
}

func TestSaveEntriesOnClosedSheet(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sheetRow(7, "500.00", true))

	rec := serve(router, http.MethodPost, "/api/entries",
		`{"sheetId":7,"entries":[{"section":"POS","row_idx":0,"cell_key":"POS_AMOUNT_0","raw_value":"1"}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListEntriesEmpty(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("FROM entries")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sheet_id", "section", "row_idx", "cell_key", "raw_value", "calculated_value",
			"metadata", "created_at", "updated_at",
		}))

	rec := serve(router, http.MethodGet, "/api/entries/7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDeleteDenominations(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sheetRow(7, "0.00", false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM denominations")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectCommit()

	rec := serve(router, http.MethodDelete, "/api/denominations/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(10), decode(t, rec)["count"])
}

func TestRangeBadDate(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rec := serve(router, http.MethodGet, "/api/reports/range/2024-01-01/tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid date format. Use YYYY-MM-DD", decode(t, rec)["error"])
}

func TestCloseNotReady(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sheetRow(7, "0.00", false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM entries")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sheet_id", "section", "row_idx", "cell_key", "raw_value", "calculated_value",
			"metadata", "created_at", "updated_at",
		}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM denominations")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sheet_id", "denomination_value", "denomination_label", "pieces",
			"calculated_amount", "created_at", "updated_at",
		}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM expenses WHERE expense_date = ?")).
		WithArgs("2024-01-26").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("0"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM collections WHERE collection_date = ?")).
		WithArgs("2024-01-26").
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow("0", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM debtors")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rec := serve(router, http.MethodPost, "/api/sheets/7/close", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Sheet is not ready to close", body["error"])
	readiness := body["reconciliation"].(map[string]interface{})["readiness"].(map[string]interface{})
	assert.Equal(t, false, readiness["canClose"])
}

func TestCollectionForPaidDebtor(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(3, sheetDay, 1, "Sharma Traders", "Ravi", "B0001", "1500.00", "Paid", sheetDay, 1, nil, stamp))
	mock.ExpectRollback()

	rec := serve(router, http.MethodPost, "/api/collections", `{"debtorId":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Debtor is already paid", decode(t, rec)["error"])
}

func TestMatchCollection(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE status = ?")).
		WithArgs("Pending").
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(3, sheetDay, 1, "Sharma Traders", "Ravi", "B0001", "1500.00", "Pending", nil, nil, nil, stamp))

	rec := serve(router, http.MethodPost, "/api/collections/match",
		`{"collectionDate":"2024-01-27","partyName":"Sharma Traders","billNo":"B0001","amount":"1500"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	matches := decode(t, rec)["matches"].([]interface{})
	require.Len(t, matches, 1)
	match := matches[0].(map[string]interface{})
	assert.Equal(t, "one_to_one", match["type"])
	assert.Equal(t, 1.0, match["confidence"])
}

func TestDebtorsCSV(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())

	mock.ExpectQuery(regexp.QuoteMeta("FROM debtors WHERE debtor_date = ?")).
		WithArgs("2024-01-26").
		WillReturnRows(sqlmock.NewRows(debtorCols).
			AddRow(3, sheetDay, 1, "Sharma Traders", "Ravi", "B0001", "1500.00", "Pending", nil, nil, nil, stamp))

	rec := serve(router, http.MethodGet, "/api/debtors?date=2024-01-26&format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, csvContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "debtors-2024-01-26.csv")
	assert.Contains(t, rec.Body.String(), "Sharma Traders")
}

func TestDraftRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rec := serve(router, http.MethodPut, "/api/drafts/2024-01-26",
		`{"entries":{"POS_AMOUNT_0":{"rawValue":"100","calculatedValue":"100"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/drafts/2024-01-26", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2024-01-26", body["date"])

	rec = serve(router, http.MethodDelete, "/api/drafts/2024-01-26", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/drafts/2024-01-26", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	router, _ := newTestRouter(t, cfg)

	first := serve(router, http.MethodGet, "/api/health", "")
	second := serve(router, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rec := serve(router, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("Route not found")))
}
