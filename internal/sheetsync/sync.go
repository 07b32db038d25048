// Package sheetsync loads and saves a sheet against the server of record,
// keeping a draft as the offline and crash fallback.
//
// On open, server data wins whenever the server has any entries or
// denominations for the date; the draft is only used when the server is
// empty or unreachable. A successful save clears the draft; a failed save
// parks the session as a draft.
package sheetsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/models"
)

// Server is the server of record as seen by the syncer.
type Server interface {
	CreateOrGetSheet(ctx context.Context, date string) (*models.Sheet, error)
	UpdateSheet(ctx context.Context, id int64, note *string, openingCash *decimal.Decimal) (*models.Sheet, error)
	Entries(ctx context.Context, sheetID int64) ([]models.Entry, error)
	Denominations(ctx context.Context, sheetID int64) ([]models.Denomination, error)
	SaveEntries(ctx context.Context, sheetID int64, entries []models.Entry) (int, error)
	SaveDenominations(ctx context.Context, sheetID int64, denominations []models.Denomination) (int, error)
}

type Syncer struct {
	server Server
	drafts drafts.Store
	logger logrus.FieldLogger
}

func New(server Server, store drafts.Store, logger logrus.FieldLogger) *Syncer {
	return &Syncer{server: server, drafts: store, logger: logger}
}

// Open loads the session of date.
func (s *Syncer) Open(ctx context.Context, date string) (*Session, error) {
	log := s.logger.WithFields(logrus.Fields{"module": "sheetsync", "date": date})

	sheet, err := s.server.CreateOrGetSheet(ctx, date)
	if err != nil {
		d, derr := s.drafts.Load(ctx, date)
		if derr != nil || d.IsEmpty() {
			return nil, fmt.Errorf("failed to open sheet %s: %w", date, err)
		}
		log.WithError(err).Warn("server unavailable, opening draft")
		session := &Session{Date: date, SheetID: d.SheetID, Origin: OriginDraft}
		session.applyDraft(d)
		return session, nil
	}

	session := &Session{
		Date:        sheet.Date,
		SheetID:     sheet.ID,
		OpeningCash: sheet.OpeningCash,
	}

	entries, err := s.server.Entries(ctx, sheet.ID)
	if err != nil {
		log.WithError(err).Warn("failed to load entries")
	}
	denominations, err := s.server.Denominations(ctx, sheet.ID)
	if err != nil {
		log.WithError(err).Warn("failed to load denominations")
	}

	if len(entries) > 0 || len(denominations) > 0 {
		session.Origin = OriginServer
		session.Entries = entries
		session.Denominations = denominations
		return session, nil
	}

	d, err := s.drafts.Load(ctx, session.Date)
	switch {
	case err == nil && !d.IsEmpty():
		session.Origin = OriginDraft
		session.applyDraft(d)
		log.Info("loaded draft")
	case err != nil && !errors.Is(err, drafts.ErrNotFound):
		log.WithError(err).Warn("failed to load draft")
		session.Origin = OriginBlank
	default:
		session.Origin = OriginBlank
	}
	return session, nil
}

// Park writes the session to the draft store without touching the server.
func (s *Syncer) Park(ctx context.Context, session *Session) error {
	return s.drafts.Save(ctx, session.Draft())
}

// Save writes the session to the server and clears the draft. When the server
// rejects or cannot take the write the session is parked as a draft and the
// server error is returned.
func (s *Syncer) Save(ctx context.Context, session *Session) error {
	if err := s.push(ctx, session); err != nil {
		if perr := s.Park(ctx, session); perr != nil {
			return errors.Join(err, fmt.Errorf("failed to park draft: %w", perr))
		}
		return err
	}

	if err := s.drafts.Clear(ctx, session.Date); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module": "sheetsync",
			"date":   session.Date,
		}).WithError(err).Warn("failed to clear draft")
	}
	session.Origin = OriginServer
	return nil
}

func (s *Syncer) push(ctx context.Context, session *Session) error {
	if session.SheetID == 0 {
		sheet, err := s.server.CreateOrGetSheet(ctx, session.Date)
		if err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		session.SheetID = sheet.ID
	}

	if !session.OpeningCash.IsZero() {
		openingCash := session.OpeningCash
		if _, err := s.server.UpdateSheet(ctx, session.SheetID, nil, &openingCash); err != nil {
			return fmt.Errorf("failed to save opening cash: %w", err)
		}
	}
	if len(session.Entries) > 0 {
		if _, err := s.server.SaveEntries(ctx, session.SheetID, session.Entries); err != nil {
			return fmt.Errorf("failed to save entries: %w", err)
		}
	}
	if len(session.Denominations) > 0 {
		if _, err := s.server.SaveDenominations(ctx, session.SheetID, session.Denominations); err != nil {
			return fmt.Errorf("failed to save denominations: %w", err)
		}
	}
	return nil
}
