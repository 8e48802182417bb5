package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/chartbot/core/logger"
)

const (
	// DefaultSyncInterval matches the refresh cadence of the spreadsheet.
	DefaultSyncInterval = 5 * time.Second

	component = "catalog"
)

// NameSource returns the ordered list of source display names.
type NameSource interface {
	FetchNames(ctx context.Context) ([]string, error)
}

// NameSourceFunc adapts a function to NameSource.
type NameSourceFunc func(ctx context.Context) ([]string, error)

// FetchNames calls f.
func (f NameSourceFunc) FetchNames(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// SnapshotStore persists the last published names for warm starts.
type SnapshotStore interface {
	Load(ctx context.Context) ([]string, bool, error)
	Save(ctx context.Context, names []string) error
}

// Subscriber is notified after a changed catalog has been published. It may
// call Subscribe or LastSync but must not call Refresh.
type Subscriber func(ctx context.Context, prev, next *Catalog)

// SyncOptions configures a Syncer.
type SyncOptions struct {
	Interval time.Duration
	Store    SnapshotStore
	OnError  func(ctx context.Context, err error)
}

// Syncer is the single writer of a Holder. It polls the name source on a fixed
// interval and publishes a new snapshot whenever the names change.
type Syncer struct {
	source   NameSource
	holder   *Holder
	interval time.Duration
	store    SnapshotStore
	onError  func(ctx context.Context, err error)

	// refreshMu serializes refreshes; mu guards the fields below and is
	// never held across a fetch or a subscriber call.
	refreshMu   sync.Mutex
	mu          sync.Mutex
	subscribers []Subscriber
	lastSync    time.Time
}

// NewSyncer wires a syncer that publishes into holder.
func NewSyncer(source NameSource, holder *Holder, opts SyncOptions) *Syncer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSyncInterval
	}
	return &Syncer{
		source:   source,
		holder:   holder,
		interval: opts.Interval,
		store:    opts.Store,
		onError:  opts.OnError,
	}
}

// Subscribe registers fn for change notifications.
func (s *Syncer) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// LastSync returns the time of the last successful fetch.
func (s *Syncer) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// Warm seeds the holder from the snapshot store when the holder is still empty.
func (s *Syncer) Warm(ctx context.Context) error {
	if s.store == nil || s.holder.Load().Len() > 0 {
		return nil
	}
	names, ok, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("catalog: load snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	s.holder.Swap(New(names))
	logger.Info(ctx, component, "catalog.warm",
		slog.String("status", "ok"),
		slog.Int("count", len(names)),
	)
	return nil
}

// Refresh fetches the names once and publishes them if they differ from the
// current snapshot. A failed fetch leaves the snapshot untouched.
func (s *Syncer) Refresh(ctx context.Context) (bool, error) {
	start := time.Now()
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	names, err := s.source.FetchNames(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Op: "names", Err: err}
		}
		logger.Warn(ctx, component, "catalog.sync",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.Took(start)),
		)
		if s.onError != nil {
			s.onError(ctx, err)
		}
		return false, err
	}
	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()

	prev := s.holder.Load()
	if prev.SameNames(names) {
		logger.Debug(ctx, component, "catalog.sync",
			slog.String("status", "skip"),
			slog.Int("count", len(names)),
			slog.Duration("duration", logger.Took(start)),
		)
		return false, nil
	}

	next := New(names)
	s.holder.Swap(next)
	preview, more := logger.SummarizeStrings(next.Names(), 10)
	logger.Info(ctx, component, "catalog.changed",
		slog.String("status", "ok"),
		slog.Int("count", next.Len()),
		slog.String("names", preview),
		slog.Bool("names_truncated", more),
		slog.Int("prev_count", prev.Len()),
		slog.Duration("duration", logger.Took(start)),
	)

	if s.store != nil {
		if err := s.store.Save(ctx, next.Names()); err != nil {
			logger.Warn(ctx, component, "catalog.persist",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}
	s.mu.Lock()
	subscribers := append([]Subscriber(nil), s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(ctx, prev, next)
	}
	return true, nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), component, "catalog.stop",
				slog.String("status", "ok"),
			)
			return
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}
