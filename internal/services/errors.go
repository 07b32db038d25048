package services

import (
	"errors"
	"strings"
	"time"

	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/repositories"
)

var (
	ErrSheetNotFound     = repositories.ErrSheetNotFound
	ErrSheetClosed       = repositories.ErrSheetClosed
	ErrDebtorNotFound    = repositories.ErrDebtorNotFound
	ErrDebtorAlreadyPaid = repositories.ErrDebtorAlreadyPaid
	ErrExpenseNotFound   = repositories.ErrExpenseNotFound
	ErrNotReadyToClose   = errors.New("sheet is not ready to close")
	ErrInvalidDate       = errors.New("invalid date format, use YYYY-MM-DD")
)

// ValidationError lists every rejected row of a batch.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func checkDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}
