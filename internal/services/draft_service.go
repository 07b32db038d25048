package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/drafts"
)

// DraftService parks unsaved sheet state on the server for clients that
// cannot keep it themselves.
type DraftService struct {
	store  drafts.Store
	maxAge time.Duration
	logger logrus.FieldLogger
}

func NewDraftService(store drafts.Store, maxAge time.Duration, logger logrus.FieldLogger) *DraftService {
	if maxAge <= 0 {
		maxAge = drafts.DefaultMaxAge
	}
	return &DraftService{store: store, maxAge: maxAge, logger: logger}
}

func (s *DraftService) Get(ctx context.Context, date string) (drafts.Draft, error) {
	if err := checkDate(date); err != nil {
		return drafts.Draft{}, err
	}
	return s.store.Load(ctx, date)
}

// Put stores d under date. An empty draft clears the slot instead.
func (s *DraftService) Put(ctx context.Context, date string, d drafts.Draft) (drafts.Draft, error) {
	if err := checkDate(date); err != nil {
		return drafts.Draft{}, err
	}
	d.Date = date
	if d.IsEmpty() {
		return d, s.store.Clear(ctx, date)
	}
	if d.Timestamp == 0 {
		d.Timestamp = time.Now().UnixMilli()
	}
	if err := s.store.Save(ctx, d); err != nil {
		return drafts.Draft{}, fmt.Errorf("failed to save draft: %w", err)
	}
	return s.store.Load(ctx, date)
}

func (s *DraftService) Delete(ctx context.Context, date string) error {
	if err := checkDate(date); err != nil {
		return err
	}
	return s.store.Clear(ctx, date)
}

func (s *DraftService) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// RunCleanup removes stale drafts every interval until ctx is done.
func (s *DraftService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.cleanup(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *DraftService) cleanup(ctx context.Context) {
	removed, err := s.store.Cleanup(ctx, s.maxAge)
	if err != nil {
		s.logger.WithField("module", "drafts").WithError(err).Warn("draft cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"module":  "drafts",
			"removed": removed,
		}).Info("removed stale drafts")
	}
}
