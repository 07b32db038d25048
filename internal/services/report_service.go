package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"daily-sheet-service/internal/cellkey"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/repositories"
)

type ReportService struct {
	sheets        repositories.SheetRepository
	entries       repositories.EntryRepository
	denominations repositories.DenominationRepository
	now           func() time.Time
}

func NewReportService(
	sheets repositories.SheetRepository,
	entries repositories.EntryRepository,
	denominations repositories.DenominationRepository,
) *ReportService {
	return &ReportService{
		sheets:        sheets,
		entries:       entries,
		denominations: denominations,
		now:           time.Now,
	}
}

type ReportSheet struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ReportSummary struct {
	TotalSale         string `json:"totalSale"`
	NetAmount         string `json:"netAmount"`
	TotalCash         string `json:"totalCash"`
	EntryCount        int    `json:"entryCount"`
	DenominationCount int    `json:"denominationCount"`
}

type Report struct {
	Sheet         ReportSheet           `json:"sheet"`
	Entries       []models.Entry        `json:"entries"`
	Denominations []models.Denomination `json:"denominations"`
	Summary       ReportSummary         `json:"summary"`
	GeneratedAt   time.Time             `json:"generatedAt"`
}

type SheetList struct {
	Sheets []models.SheetOverview `json:"sheets"`
	Total  int                    `json:"total"`
}

type RangeReport struct {
	Sheets    []models.SheetOverview `json:"sheets"`
	Total     int                    `json:"total"`
	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"dateRange"`
}

func (s *ReportService) Generate(ctx context.Context, sheetID int64) (*Report, error) {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListBySheet(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	denominations, err := s.denominations.ListBySheet(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load denominations: %w", err)
	}

	return &Report{
		Sheet: ReportSheet{
			ID:        sheet.ID,
			Date:      sheet.Date,
			Note:      sheet.Note,
			CreatedAt: sheet.CreatedAt,
			UpdatedAt: sheet.UpdatedAt,
		},
		Entries:       entries,
		Denominations: denominations,
		Summary:       SummarizeReport(entries, denominations),
		GeneratedAt:   s.now().UTC(),
	}, nil
}

// SummarizeReport prefers the stored TOTAL_SALE and NET_AMOUNT cells. When
// either is absent or zero it is rebuilt from the amount columns: POS, KQR
// and KSW amounts make the total sale and debtor amounts are subtracted for
// the net amount.
func SummarizeReport(entries []models.Entry, denominations []models.Denomination) ReportSummary {
	totalSale := decimal.Zero
	netAmount := decimal.Zero
	sections := make(map[cellkey.Section]decimal.Decimal)

	for _, e := range entries {
		value, err := decimal.NewFromString(e.CalculatedValue)
		if err != nil {
			continue
		}
		switch e.CellKey {
		case cellkey.TotalSale:
			totalSale = value
			continue
		case cellkey.NetAmount:
			netAmount = value
			continue
		}
		if ref, ok := cellkey.Parse(e.CellKey); ok && ref.Field == cellkey.FieldAmount {
			sections[ref.Section] = sections[ref.Section].Add(value)
		}
	}

	if totalSale.IsZero() {
		totalSale = sections[cellkey.SectionPOS].Add(sections[cellkey.SectionKQR]).Add(sections[cellkey.SectionKSW])
	}
	if netAmount.IsZero() {
		netAmount = totalSale.Sub(sections[cellkey.SectionDebtor])
	}

	totalCash := decimal.Zero
	for _, d := range denominations {
		totalCash = totalCash.Add(d.CalculatedAmount)
	}

	return ReportSummary{
		TotalSale:         totalSale.StringFixed(2),
		NetAmount:         netAmount.StringFixed(2),
		TotalCash:         totalCash.StringFixed(2),
		EntryCount:        len(entries),
		DenominationCount: len(denominations),
	}
}

func (s *ReportService) ListDates(ctx context.Context) (*SheetList, error) {
	sheets, err := s.sheets.ListOverview(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	return &SheetList{Sheets: sheets, Total: len(sheets)}, nil
}

func (s *ReportService) Range(ctx context.Context, start, end string) (*RangeReport, error) {
	if checkDate(start) != nil || checkDate(end) != nil {
		return nil, ErrInvalidDate
	}

	sheets, err := s.sheets.ListRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets in range: %w", err)
	}

	report := &RangeReport{Sheets: sheets, Total: len(sheets)}
	report.DateRange.Start = start
	report.DateRange.End = end
	return report, nil
}

// Overview reports store-wide counts and activity over the last seven days.
func (s *ReportService) Overview(ctx context.Context) (*models.Overview, error) {
	overview, err := s.sheets.Overview(ctx, s.now().AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("failed to build overview: %w", err)
	}
	return overview, nil
}
