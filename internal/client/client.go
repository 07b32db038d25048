// Package client talks to the daily sheet REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/services"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response. A 404 matches ErrNotFound.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API mounted at baseURL, for example
// http://localhost:8080/api.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var parsed struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == "" {
		parsed.Error = strings.TrimSpace(string(body))
		if parsed.Error == "" {
			parsed.Error = http.StatusText(status)
		}
	}
	return &APIError{Status: status, Message: parsed.Error, Details: parsed.Details}
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// CreateOrGetSheet returns the sheet of date, creating it when missing. An
// empty date means the server's today.
func (c *Client) CreateOrGetSheet(ctx context.Context, date string) (*models.Sheet, error) {
	var sheet models.Sheet
	body := map[string]string{}
	if date != "" {
		body["date"] = date
	}
	if err := c.do(ctx, http.MethodPost, "/sheets", body, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (c *Client) GetSheet(ctx context.Context, date string) (*models.Sheet, error) {
	var sheet models.Sheet
	if err := c.do(ctx, http.MethodGet, "/sheets/"+url.PathEscape(date), nil, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (c *Client) UpdateSheet(ctx context.Context, id int64, note *string, openingCash *decimal.Decimal) (*models.Sheet, error) {
	body := struct {
		SheetNote   *string          `json:"sheet_note,omitempty"`
		OpeningCash *decimal.Decimal `json:"opening_cash,omitempty"`
	}{note, openingCash}

	var sheet models.Sheet
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/sheets/%d", id), body, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

type saveResult struct {
	Count int `json:"count"`
}

// SaveEntries upserts entries and returns how many the server stored.
func (c *Client) SaveEntries(ctx context.Context, sheetID int64, entries []models.Entry) (int, error) {
	body := struct {
		SheetID int64          `json:"sheetId"`
		Entries []models.Entry `json:"entries"`
	}{sheetID, entries}

	var result saveResult
	if err := c.do(ctx, http.MethodPost, "/entries", body, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (c *Client) Entries(ctx context.Context, sheetID int64) ([]models.Entry, error) {
	var entries []models.Entry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/entries/%d", sheetID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) DeleteEntries(ctx context.Context, sheetID int64) (int, error) {
	var result saveResult
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/entries/%d", sheetID), nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (c *Client) SaveDenominations(ctx context.Context, sheetID int64, denominations []models.Denomination) (int, error) {
	body := struct {
		SheetID       int64                 `json:"sheetId"`
		Denominations []models.Denomination `json:"denominations"`
	}{sheetID, denominations}

	var result saveResult
	if err := c.do(ctx, http.MethodPost, "/denominations", body, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (c *Client) Denominations(ctx context.Context, sheetID int64) ([]models.Denomination, error) {
	var denominations []models.Denomination
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/denominations/%d", sheetID), nil, &denominations); err != nil {
		return nil, err
	}
	return denominations, nil
}

func (c *Client) Report(ctx context.Context, sheetID int64) (*services.Report, error) {
	var report services.Report
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/reports/%d", sheetID), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) Reconcile(ctx context.Context, sheetID int64) (*services.DayReconciliation, error) {
	var day services.DayReconciliation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sheets/%d/reconciliation", sheetID), nil, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

// CloseDay closes the sheet. A sheet that is not ready comes back as a 409
// APIError.
func (c *Client) CloseDay(ctx context.Context, sheetID int64, notes string) (*services.DayReconciliation, error) {
	body := map[string]string{}
	if notes != "" {
		body["notes"] = notes
	}
	var result struct {
		Data services.DayReconciliation `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/sheets/%d/close", sheetID), body, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}
