package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/client"
	"daily-sheet-service/internal/config"
	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/models"
	"daily-sheet-service/internal/reconciliation"
	"daily-sheet-service/internal/services"
	"daily-sheet-service/internal/sheetsync"
	"daily-sheet-service/internal/validation"
)

const commandHelp = `Commands:
  show                        print cells, denominations and the cash summary
  set KEY VALUE [KEY VALUE]   enter amounts, formulas or names, e.g. set POS_AMOUNT_0 =1000+500
  count VALUE PIECES [...]    enter denomination counts, e.g. count 500 4 coupons 2
  cash AMOUNT                 enter the opening cash
  save                        push the sheet to the server and clear the draft
  discard                     drop the parked draft
  reconcile                   server reconciliation including ledgers
  close [NOTES]               close the day
  report                      print the stored report summary
`

var errUsage = errors.New("usage")

type app struct {
	cfg       *config.Config
	api       *client.Client
	store     drafts.Store
	syncer    *sheetsync.Syncer
	validator *validation.Validator
	logger    logrus.FieldLogger
	out       io.Writer
}

func (a *app) run(ctx context.Context, date string, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}
	if res := a.validator.ValidateDate(date); !res.Valid {
		return fmt.Errorf("%s: %s", date, res.Message)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "show":
		return a.show(ctx, date)
	case "set":
		return a.edit(ctx, date, rest, a.setCells)
	case "count":
		return a.edit(ctx, date, rest, a.countPieces)
	case "cash":
		return a.edit(ctx, date, rest, a.openingCash)
	case "save":
		return a.save(ctx, date)
	case "discard":
		if err := a.store.Clear(ctx, date); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Draft for %s cleared\n", date)
		return nil
	case "reconcile":
		return a.reconcile(ctx, date)
	case "close":
		return a.close(ctx, date, strings.Join(rest, " "))
	case "report":
		return a.report(ctx, date)
	}
	return errUsage
}

func (a *app) show(ctx context.Context, date string) error {
	session, err := a.syncer.Open(ctx, date)
	if err != nil {
		return err
	}
	summary, err := session.Summary(a.cfg.Sheet.RowLimit)
	if err != nil {
		a.logger.WithError(err).Warn("some cells could not be evaluated")
	}
	a.printSession(session, summary)
	return nil
}

// edit applies change to the session. Sheets the server already holds data
// for are saved straight back; otherwise the edit is parked as a draft.
func (a *app) edit(ctx context.Context, date string, args []string, change func(*sheetsync.Session, []string) error) error {
	session, err := a.syncer.Open(ctx, date)
	if err != nil {
		return err
	}
	if err := change(session, args); err != nil {
		return err
	}
	summary, err := session.Summary(a.cfg.Sheet.RowLimit)
	if err != nil {
		return err
	}

	if session.Origin == sheetsync.OriginServer {
		if err := a.syncer.Save(ctx, session); err != nil {
			return err
		}
	} else {
		if err := a.park(ctx, session); err != nil {
			return err
		}
		session.Origin = sheetsync.OriginDraft
	}
	a.printSession(session, summary)
	return nil
}

func (a *app) park(ctx context.Context, session *sheetsync.Session) error {
	saver := drafts.NewAutosaver(a.store, session.Draft, drafts.AutosaveOptions{
		Debounce:       a.cfg.Draft.Debounce,
		ForcedInterval: a.cfg.Draft.ForcedInterval,
		Logger:         a.logger,
	})
	saver.Touch()
	return saver.Close(ctx)
}

func (a *app) setCells(session *sheetsync.Session, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return errUsage
	}
	for i := 0; i < len(args); i += 2 {
		key, raw := strings.ToUpper(args[i]), args[i+1]
		if res := a.validator.Validate(key, validation.KindCellKey); !res.Valid {
			return fmt.Errorf("%s: %s", key, res.Message)
		}
		if res := a.validator.ValidateValue(key, raw); !res.Valid {
			return fmt.Errorf("%s: %s", key, res.Message)
		}
		if validation.IsTextKey(key) {
			raw = validation.SanitizeString(raw)
		}
		if err := session.SetCell(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) countPieces(session *sheetsync.Session, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return errUsage
	}
	for i := 0; i < len(args); i += 2 {
		value, err := sheetsync.ParseDenomination(args[i])
		if err != nil {
			return err
		}
		if res := a.validator.Validate(args[i+1], validation.KindPieces); !res.Valid {
			return fmt.Errorf("%s: %s", reconciliation.Label(value), res.Message)
		}
		pieces, err := strconv.Atoi(args[i+1])
		if err != nil {
			return fmt.Errorf("%s: invalid piece count %q", reconciliation.Label(value), args[i+1])
		}
		session.SetPieces(value, pieces)
	}
	return nil
}

func (a *app) openingCash(session *sheetsync.Session, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if res := a.validator.Validate(args[0], validation.KindAmount); !res.Valid {
		return errors.New(res.Message)
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return errors.New("opening cash cannot be negative")
	}
	session.OpeningCash = amount
	return nil
}

func (a *app) save(ctx context.Context, date string) error {
	session, err := a.syncer.Open(ctx, date)
	if err != nil {
		return err
	}
	if _, err := session.Calculate(a.cfg.Sheet.RowLimit); err != nil {
		return fmt.Errorf("sheet has invalid cells: %w", err)
	}
	if err := a.syncer.Save(ctx, session); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved sheet %d (%s): %d entries, %d denominations\n",
		session.SheetID, session.Date, len(session.Entries), len(session.Denominations))
	return nil
}

func (a *app) reconcile(ctx context.Context, date string) error {
	sheet, err := a.api.CreateOrGetSheet(ctx, date)
	if err != nil {
		return err
	}
	day, err := a.api.Reconcile(ctx, sheet.ID)
	if err != nil {
		return err
	}
	a.printReconciliation(day)
	return nil
}

func (a *app) close(ctx context.Context, date, notes string) error {
	sheet, err := a.api.CreateOrGetSheet(ctx, date)
	if err != nil {
		return err
	}
	day, err := a.api.CloseDay(ctx, sheet.ID, notes)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			if day, rerr := a.api.Reconcile(ctx, sheet.ID); rerr == nil {
				a.printReconciliation(day)
			}
		}
		return err
	}
	fmt.Fprintf(a.out, "Day %s closed\n", day.Date)
	a.printReconciliation(day)
	return nil
}

func (a *app) report(ctx context.Context, date string) error {
	sheet, err := a.api.GetSheet(ctx, date)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("no sheet for %s", date)
		}
		return err
	}
	report, err := a.api.Report(ctx, sheet.ID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Date\t%s\n", report.Sheet.Date)
	fmt.Fprintf(tw, "Total sale\t%s\n", report.Summary.TotalSale)
	fmt.Fprintf(tw, "Net amount\t%s\n", report.Summary.NetAmount)
	fmt.Fprintf(tw, "Total cash\t%s\n", report.Summary.TotalCash)
	fmt.Fprintf(tw, "Entries\t%d\n", report.Summary.EntryCount)
	fmt.Fprintf(tw, "Denominations\t%d\n", report.Summary.DenominationCount)
	return tw.Flush()
}

func (a *app) printSession(session *sheetsync.Session, summary reconciliation.Summary) {
	fmt.Fprintf(a.out, "Sheet %s (%s)\n\n", session.Date, session.Origin)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if len(session.Entries) > 0 {
		fmt.Fprintln(tw, "CELL\tVALUE\tFORMULA")
		for _, e := range session.Entries {
			formula := ""
			if strings.HasPrefix(strings.TrimSpace(e.RawValue), "=") {
				formula = e.RawValue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CellKey, e.CalculatedValue, formula)
		}
		fmt.Fprintln(tw)
	}
	if len(session.Denominations) > 0 {
		fmt.Fprintln(tw, "NOTE\tPIECES\tAMOUNT")
		for _, d := range session.Denominations {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", d.DenominationLabel, d.Pieces, reconciliation.FormatINR(d.CalculatedAmount))
		}
		fmt.Fprintln(tw)
	}
	printSummary(tw, summary)
	tw.Flush()
}

func (a *app) printReconciliation(day *services.DayReconciliation) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	printSummary(tw, day.Summary)
	fmt.Fprintln(tw)
	for _, c := range day.Readiness.Checks {
		mark := "x"
		if c.Passed {
			mark = "ok"
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\n", mark, c.Name, c.Message)
	}
	if day.Readiness.CanClose {
		fmt.Fprintln(tw, "\nReady to close")
	}
	tw.Flush()
}

func printSummary(w io.Writer, s reconciliation.Summary) {
	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Opening cash", s.OpeningCash},
		{"Total sale", s.TotalSale},
		{"Debit cash", s.DebitCash},
		{"QR", s.QRTotal},
		{"Swipe", s.SwipeTotal},
		{"Debtors", s.DebtorsTotal},
		{"Net amount", s.NetAmount},
		{"Counted cash", s.DenominationTotal},
		{"Difference", s.Difference},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r.label, reconciliation.FormatINR(r.amount))
	}
	if s.Balanced {
		fmt.Fprintln(w, "Balanced\tyes")
	} else {
		fmt.Fprintln(w, "Balanced\tno")
	}
}
