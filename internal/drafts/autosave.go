package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source returns the current sheet state to park as a draft.
type Source func() Draft

type AutosaveOptions struct {
	Debounce       time.Duration
	ForcedInterval time.Duration
	Logger         logrus.FieldLogger
}

// Autosaver writes drafts a short while after the last change and on a
// forced interval. At most one write is in flight; triggers that arrive
// during a write are folded into one follow-up write. State identical to the
// last written draft is not written again.
type Autosaver struct {
	store  Store
	source Source
	opts   AutosaveOptions

	mu      sync.Mutex
	timer   *time.Timer
	saving  bool
	pending bool
	last    []byte
	closed  bool

	stop chan struct{}
}

func NewAutosaver(store Store, source Source, opts AutosaveOptions) *Autosaver {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.ForcedInterval <= 0 {
		opts.ForcedInterval = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Autosaver{
		store:  store,
		source: source,
		opts:   opts,
		stop:   make(chan struct{}),
	}
}

// Start runs the forced-interval loop until Close.
func (a *Autosaver) Start() {
	go func() {
		ticker := time.NewTicker(a.opts.ForcedInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.flushLogged("interval")
			case <-a.stop:
				return
			}
		}
	}()
}

// Touch records a change and (re)arms the debounce timer.
func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.opts.Debounce, func() { a.flushLogged("debounce") })
}

func (a *Autosaver) flushLogged(trigger string) {
	if err := a.Flush(context.Background()); err != nil {
		a.opts.Logger.WithFields(logrus.Fields{
			"module":  "drafts",
			"trigger": trigger,
		}).WithError(err).Warn("draft autosave failed")
	}
}

// Flush writes the current state now. When a write is already running the
// request is deferred until it finishes and Flush returns nil.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.saving {
		a.pending = true
		a.mu.Unlock()
		return nil
	}
	a.saving = true
	a.mu.Unlock()

	for {
		err := a.saveOnce(ctx)

		a.mu.Lock()
		if !a.pending || err != nil {
			a.saving = false
			a.pending = false
			a.mu.Unlock()
			return err
		}
		a.pending = false
		a.mu.Unlock()
	}
}

func (a *Autosaver) saveOnce(ctx context.Context) error {
	d := a.source()
	if d.Date == "" || d.IsEmpty() {
		return nil
	}

	fingerprint, err := json.Marshal(Draft{
		Date:          d.Date,
		SheetID:       d.SheetID,
		OpeningCash:   d.OpeningCash,
		Entries:       d.Entries,
		Denominations: d.Denominations,
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	unchanged := bytes.Equal(fingerprint, a.last)
	a.mu.Unlock()
	if unchanged {
		return nil
	}

	d.Timestamp = time.Now().UnixMilli()
	if err := a.store.Save(ctx, d); err != nil {
		return err
	}

	a.mu.Lock()
	a.last = fingerprint
	a.mu.Unlock()
	return nil
}

// Reset forgets the last written state, so the next flush writes even if
// nothing changed. Used after the draft is cleared elsewhere.
func (a *Autosaver) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = nil
}

// Close stops the timers and makes a final best-effort write.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	close(a.stop)
	return a.Flush(ctx)
}
