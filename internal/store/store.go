// Package store owns the cached, normalized snapshot of the clinic
// operations. A snapshot is fetched from the configured backend at most
// once per TTL; concurrent misses share a single fetch.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dentaldash/internal/analytics"
	"dentaldash/internal/cache"
	"dentaldash/internal/core"
	"dentaldash/internal/log"
	"dentaldash/internal/records"
)

// DefaultTTL is the hard expiry of a cached snapshot.
const DefaultTTL = 5 * time.Minute

// Snapshot is one normalized load of the record table.
type Snapshot struct {
	Table       string
	Records     []core.OperationRecord
	Quarantined []*analytics.RowError
	FetchedAt   time.Time
}

// FetchError reports a backend failure while loading a snapshot.
type FetchError struct {
	Table string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Table, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the dashboard has no data to
// show: a backend failure or an empty table.
func IsUnavailable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) || errors.Is(err, analytics.ErrNoData)
}

// Options configures a Store.
type Options struct {
	Table  string
	TTL    time.Duration
	Policy analytics.ParsePolicy
	Logger *log.Logger
	Now    func() time.Time
}

// Status describes the state of the cache for health reporting.
type Status struct {
	Cached    bool      `json:"cached"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Records   int       `json:"records"`
	LastError string    `json:"last_error,omitempty"`
	Loads     int64     `json:"loads"`
}

// Store serves snapshots of one table.
type Store struct {
	fetcher records.Fetcher
	table   string
	policy  analytics.ParsePolicy
	logger  *log.Logger
	now     func() time.Time

	snapshots *cache.LRUCache[*Snapshot]
	group     singleflight.Group

	mu        sync.Mutex
	gen       uint64
	lastErr   error
	lastFetch time.Time
	loads     int64
	records   int
}

func New(fetcher records.Fetcher, opts Options) *Store {
	if opts.Table == "" {
		opts.Table = records.DefaultTable
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Policy == "" {
		opts.Policy = analytics.PolicyStrict
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		fetcher:   fetcher,
		table:     opts.Table,
		policy:    opts.Policy,
		logger:    opts.Logger.WithComponent(log.ComponentStore),
		now:       opts.Now,
		snapshots: cache.NewLRUCache[*Snapshot](1, opts.TTL).WithClock(opts.Now),
	}
}

// Cache exposes the snapshot cache for periodic cleanup.
func (s *Store) Cache() cache.Cleaner { return s.snapshots }

// Table returns the table served by the store.
func (s *Store) Table() string { return s.table }

// Load returns the cached snapshot, fetching and normalizing the table
// when the cache is empty or expired. Failures are not cached.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	if snap, ok := s.snapshots.Get(s.table); ok {
		return snap, nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	key := fmt.Sprintf("%s#%d", s.table, gen)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.load(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Store) load(ctx context.Context, gen uint64) (*Snapshot, error) {
	start := s.now()
	raw, err := s.fetcher.FetchAll(ctx, s.table)
	if err != nil {
		err = &FetchError{Table: s.table, Err: err}
		s.recordFailure(err)
		s.logger.ErrorContext(ctx, "Snapshot fetch failed",
			log.NewFields().WithOperation(log.OpFetch).WithError(err).ToSlice()...)
		return nil, err
	}

	res, err := analytics.Normalize(raw, s.policy)
	if err != nil {
		s.recordFailure(err)
		s.logger.WarnContext(ctx, "Snapshot not usable",
			log.NewFields().WithOperation(log.OpNormalize).WithLoad(s.table, len(raw), len(res.Quarantined)).WithError(err).ToSlice()...)
		return nil, err
	}

	snap := &Snapshot{
		Table:       s.table,
		Records:     res.Records,
		Quarantined: res.Quarantined,
		FetchedAt:   s.now(),
	}

	s.mu.Lock()
	s.loads++
	s.lastErr = nil
	s.lastFetch = snap.FetchedAt
	s.records = len(snap.Records)
	current := s.gen == gen
	s.mu.Unlock()

	// an invalidation during the fetch makes this result stale for caching
	if current {
		s.snapshots.Set(s.table, snap)
	}

	if len(res.Quarantined) > 0 {
		for _, q := range res.Quarantined {
			s.logger.DebugContext(ctx, "Quarantined row", log.FieldError, q.Error())
		}
	}
	s.logger.InfoContext(ctx, "Snapshot loaded",
		append(log.NewFields().WithOperation(log.OpFetch).WithLoad(s.table, len(res.Records), len(res.Quarantined)).ToSlice(),
			log.FieldDuration, s.now().Sub(start).Milliseconds())...)
	return snap, nil
}

func (s *Store) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Invalidate drops the cached snapshot so the next Load fetches again.
func (s *Store) Invalidate(reason string) {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	s.snapshots.Delete(s.table)
	s.logger.Info("Snapshot invalidated", log.FieldOperation, log.OpInvalidate, log.FieldReason, reason)
}

// Status reports the cache state without triggering a fetch.
func (s *Store) Status() Status {
	_, cached := s.snapshots.Get(s.table)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Cached: cached, FetchedAt: s.lastFetch, Records: s.records, Loads: s.loads}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
