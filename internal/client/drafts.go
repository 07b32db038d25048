package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"daily-sheet-service/internal/drafts"
)

// DraftStore parks drafts on the server's draft cache. It satisfies
// drafts.Store.
type DraftStore struct {
	c *Client
}

func (c *Client) Drafts() *DraftStore {
	return &DraftStore{c: c}
}

func (s *DraftStore) Save(ctx context.Context, d drafts.Draft) error {
	return s.c.do(ctx, http.MethodPut, "/drafts/"+url.PathEscape(d.Date), d, nil)
}

func (s *DraftStore) Load(ctx context.Context, date string) (drafts.Draft, error) {
	var d drafts.Draft
	err := s.c.do(ctx, http.MethodGet, "/drafts/"+url.PathEscape(date), nil, &d)
	if errors.Is(err, ErrNotFound) {
		return drafts.Draft{}, drafts.ErrNotFound
	}
	return d, err
}

func (s *DraftStore) Clear(ctx context.Context, date string) error {
	return s.c.do(ctx, http.MethodDelete, "/drafts/"+url.PathEscape(date), nil, nil)
}

func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	var result struct {
		Dates []string `json:"dates"`
	}
	if err := s.c.do(ctx, http.MethodGet, "/drafts", nil, &result); err != nil {
		return nil, err
	}
	return result.Dates, nil
}

// Cleanup is a no-op; the server expires its own drafts.
func (s *DraftStore) Cleanup(context.Context, time.Duration) (int, error) {
	return 0, nil
}
