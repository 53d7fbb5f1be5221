// Package session drives the incremental loading of one searched account:
// an initial concurrent account+page fetch, manual load-more, and an
// opportunistic background continuation that keeps prefetching pages while
// the session sits idle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stellar/go/support/log"

	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/horizon"
)

const (
	// DefaultPageLimit is the transaction page size for incremental loading.
	DefaultPageLimit = 20
	// DefaultIdleDelay is how long a session stays idle before the next page
	// is prefetched in the background.
	DefaultIdleDelay = 2 * time.Second
)

// State of the loading session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateLoadingMore
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateLoadingMore:
		return "loading_more"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

type Config struct {
	Client    *horizon.Client
	Logger    *log.Entry
	Registry  *prometheus.Registry
	PageLimit int
	IdleDelay time.Duration
}

type Metrics struct {
	pagesFetched     prometheus.Counter
	prefetchFailures prometheus.Counter
}

// Session is the per-search pagination controller. All mutable state is
// guarded by mu; fetch results are applied only if the session generation
// they started under is still current, so a stale background fetch of a
// previous search can never leak into the new one.
type Session struct {
	client    *horizon.Client
	logger    *log.Entry
	metrics   Metrics
	pageLimit int
	idleDelay time.Duration

	ctx  context.Context
	done context.CancelFunc
	wg   sync.WaitGroup

	mu                sync.Mutex
	generation        int
	state             State
	accountID         string
	account           *horizon.Account
	transactions      []horizon.Transaction
	cursor            string
	hasMore           bool
	statistics        *horizon.AccountStatistics
	loadingStatistics bool
	loadingMore       bool
	timer             *time.Timer
}

func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = log.DefaultLogger
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = DefaultIdleDelay
	}

	pagesFetched := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xdb_explorer", Subsystem: "session", Name: "pages_fetched_total",
		Help: "transaction pages fetched across all searches",
	})
	prefetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xdb_explorer", Subsystem: "session", Name: "prefetch_failures_total",
		Help: "background continuations that failed and stopped auto-prefetching",
	})
	cfg.Registry.MustRegister(pagesFetched, prefetchFailures)

	ctx, done := context.WithCancel(context.Background())
	return &Session{
		client:    cfg.Client,
		logger:    cfg.Logger,
		metrics:   Metrics{pagesFetched: pagesFetched, prefetchFailures: prefetchFailures},
		pageLimit: cfg.PageLimit,
		idleDelay: cfg.IdleDelay,
		ctx:       ctx,
		done:      done,
		state:     StateIdle,
	}
}

// Search starts a new session for accountID, invalidating any pending
// background continuation of the previous search. The account info and first
// transaction page are fetched concurrently; a failure of either is fatal to
// this search. Account statistics load in the background and never block or
// fail the search.
func (s *Session) Search(ctx context.Context, accountID string) error {
	if !horizon.ValidateAccountID(accountID) {
		return horizon.ErrInvalidSearch
	}

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.resetLocked(accountID)
	s.state = StateLoading
	s.mu.Unlock()

	var (
		wg      sync.WaitGroup
		account *horizon.Account
		page    horizon.Page[horizon.Transaction]
		acctErr error
		pageErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		account, acctErr = s.client.AccountInfo(ctx, accountID)
	}()
	go func() {
		defer wg.Done()
		page, pageErr = s.client.TransactionsProgressive(ctx, accountID, "", s.pageLimit)
	}()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		// A newer search superseded this one while it was in flight.
		return nil
	}
	if acctErr != nil {
		s.state = StateIdle
		return acctErr
	}
	if pageErr != nil {
		s.state = StateIdle
		return pageErr
	}

	s.account = account
	s.transactions = page.Records
	s.cursor = page.NextCursor
	s.hasMore = page.HasMore
	if s.hasMore {
		s.state = StateReady
		s.scheduleAutoLoadLocked(generation)
	} else {
		s.state = StateExhausted
	}
	s.metrics.pagesFetched.Inc()

	s.loadingStatistics = true
	s.wg.Add(1)
	go s.loadStatistics(generation, accountID)
	return nil
}

// LoadMore fetches the next page on demand. It is a no-op when the session
// is exhausted or a load is already in flight.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()
	return s.loadPage(ctx, generation)
}

// Snapshot returns a copy of the session's current view.
type Snapshot struct {
	State             State
	AccountID         string
	Account           *horizon.Account
	Transactions      []horizon.Transaction
	NextCursor        string
	HasMore           bool
	Statistics        *horizon.AccountStatistics
	LoadingStatistics bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]horizon.Transaction, len(s.transactions))
	copy(txs, s.transactions)
	return Snapshot{
		State:             s.state,
		AccountID:         s.accountID,
		Account:           s.account,
		Transactions:      txs,
		NextCursor:        s.cursor,
		HasMore:           s.hasMore,
		Statistics:        s.statistics,
		LoadingStatistics: s.loadingStatistics,
	}
}

// Close cancels background work and waits for it to settle.
func (s *Session) Close() error {
	s.mu.Lock()
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.done()
	s.wg.Wait()
	return nil
}

// resetLocked clears per-search state. Must be called with mu held.
func (s *Session) resetLocked(accountID string) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.accountID = accountID
	s.account = nil
	s.transactions = nil
	s.cursor = ""
	s.hasMore = false
	s.statistics = nil
	s.loadingStatistics = false
	s.loadingMore = false
}

// scheduleAutoLoadLocked arms the idle prefetch timer. Must be called with
// mu held.
func (s *Session) scheduleAutoLoadLocked(generation int) {
	if s.timer != nil {
		s.timer.Stop()
	}
	// The callback runs without mu, so it must not touch session fields a
	// later Search may be rewriting.
	accountID := s.accountID
	s.timer = time.AfterFunc(s.idleDelay, func() {
		if err := s.loadPage(s.ctx, generation); err != nil {
			// Background continuation failures are non-fatal: log and stop
			// auto-continuing. A manual LoadMore can still resume.
			s.logger.WithError(err).WithField("account", accountID).
				Warn("background transaction prefetch failed")
			s.metrics.prefetchFailures.Inc()
		}
	})
}

// loadPage fetches one page with the stored cursor and appends it, dropping
// the result if the session moved on to a different search. At most one page
// load is in flight at a time; a concurrent request is dropped, not queued.
func (s *Session) loadPage(ctx context.Context, generation int) error {
	s.mu.Lock()
	if generation != s.generation || !s.hasMore || s.loadingMore {
		s.mu.Unlock()
		return nil
	}
	s.loadingMore = true
	s.state = StateLoadingMore
	accountID := s.accountID
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.client.TransactionsProgressive(ctx, accountID, cursor, s.pageLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		// Stale result: the session was re-targeted while fetching.
		return nil
	}
	s.loadingMore = false
	if err != nil {
		s.state = StateReady
		return err
	}

	if len(page.Records) > 0 {
		s.transactions = append(s.transactions, page.Records...)
		s.cursor = page.NextCursor
	}
	s.hasMore = page.HasMore
	s.metrics.pagesFetched.Inc()
	if s.hasMore {
		s.state = StateReady
		s.scheduleAutoLoadLocked(generation)
	} else {
		s.state = StateExhausted
	}
	return nil
}

func (s *Session) loadStatistics(generation int, accountID string) {
	defer s.wg.Done()
	stats, err := s.client.AccountStatistics(s.ctx, accountID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return
	}
	s.loadingStatistics = false
	if err != nil {
		// Statistics are best-effort enrichment, never surfaced as an error.
		s.logger.WithError(err).WithField("account", accountID).
			Warn("could not load account statistics")
		return
	}
	s.statistics = stats
}
