package horizon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"

	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/cache"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/ratelimit"
)

const (
	// DefaultHorizonURL is the public Horizon instance of the XDB Chain livenet.
	DefaultHorizonURL = "https://horizon.livenet.xdbchain.com"

	// DefaultListLimit is the page size used by list endpoints unless the
	// caller asks for less.
	DefaultListLimit = 200
	// DefaultProgressiveLimit is the small page size used for incremental
	// transaction loading.
	DefaultProgressiveLimit = 20

	// batchPageLimit is the page size for multi-page batch fetching.
	batchPageLimit = 50
	// defaultBatchPageDelay paces consecutive batch pages. This is UX pacing
	// on top of the rate limiter, not a substitute for it.
	defaultBatchPageDelay = 100 * time.Millisecond

	defaultHTTPTimeout = 30 * time.Second
)

// Config collects the collaborators of a Client. Cache and Limiter are
// injected so call sites (and tests) can own isolated instances instead of
// sharing process globals.
type Config struct {
	HorizonURL     string
	HTTPClient     *http.Client
	Cache          *cache.Cache
	Limiter        *ratelimit.Limiter
	Logger         *log.Entry
	Registry       *prometheus.Registry
	BatchPageDelay time.Duration
}

// Client talks to the Horizon-style read API of the ledger. Every request
// goes through the same policy chain: response cache first, then rate-limiter
// admission, then the network. A response served from cache consumes no
// rate-limiter slot.
type Client struct {
	baseURL        string
	hc             *http.Client
	cache          *cache.Cache
	limiter        *ratelimit.Limiter
	logger         *log.Entry
	metrics        clientMetrics
	batchPageDelay time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.HorizonURL == "" {
		cfg.HorizonURL = DefaultHorizonURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(cache.DefaultMaxSize, cache.DefaultTTL)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.DefaultLogger
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.BatchPageDelay <= 0 {
		cfg.BatchPageDelay = defaultBatchPageDelay
	}
	return &Client{
		baseURL:        cfg.HorizonURL,
		hc:             cfg.HTTPClient,
		cache:          cfg.Cache,
		limiter:        cfg.Limiter,
		logger:         cfg.Logger,
		metrics:        newClientMetrics(cfg.Registry),
		batchPageDelay: cfg.BatchPageDelay,
	}
}

// ClearCache drops all memoized responses.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// AccountInfo fetches the account resource for accountID.
func (c *Client) AccountInfo(ctx context.Context, accountID string) (*Account, error) {
	data, err := c.makeRequest(ctx, "accounts", "/accounts/"+accountID, nil)
	if err != nil {
		return nil, err
	}
	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, errors.Wrap(err, "could not decode account")
	}
	return &account, nil
}

// Transactions fetches one page of an account's transactions in descending
// creation order. With includeOperations set, every transaction in the page
// is enriched with its operations via concurrent sub-fetches; a failed
// sub-fetch never fails the page (see enrichOperations).
func (c *Client) Transactions(ctx context.Context, accountID, cursor string, limit int, includeOperations bool) (Page[Transaction], error) {
	params := listParams(cursor, limit)
	params["include_failed"] = "false"
	page, err := fetchPage[Transaction](ctx, c, "transactions", "/accounts/"+accountID+"/transactions", params)
	if err != nil {
		return Page[Transaction]{}, err
	}
	if includeOperations {
		c.enrichOperations(ctx, page.Records)
	}
	return page, nil
}

// TransactionsProgressive is the single-page fetch used for incremental and
// background loading. Operations are always included.
func (c *Client) TransactionsProgressive(ctx context.Context, accountID, cursor string, limit int) (Page[Transaction], error) {
	if limit <= 0 {
		limit = DefaultProgressiveLimit
	}
	return c.Transactions(ctx, accountID, cursor, limit, true)
}

// Batch is the result of a multi-page transaction fetch. HasMore is true
// only when the page cap stopped the batch; running out of upstream data
// reports false even though NextCursor is still set.
type Batch struct {
	Records      []Transaction
	NextCursor   string
	HasMore      bool
	TotalFetched int
}

// TransactionsBatch fetches up to maxPages consecutive transaction pages,
// chaining cursors. It stops early on an empty page or when upstream reports
// no more data. A page failure after at least one successful page stops the
// batch and returns what was accumulated.
func (c *Client) TransactionsBatch(ctx context.Context, accountID, startCursor string, maxPages int) (Batch, error) {
	var records []Transaction
	cursor := startCursor
	hasMore := true
	pagesLoaded := 0

	for hasMore && pagesLoaded < maxPages {
		page, err := c.Transactions(ctx, accountID, cursor, batchPageLimit, true)
		if err != nil {
			if len(records) == 0 {
				return Batch{}, err
			}
			c.logger.WithError(err).WithField("page", pagesLoaded+1).
				Warn("stopping transaction batch early")
			break
		}
		if len(page.Records) == 0 {
			break
		}

		records = append(records, page.Records...)
		cursor = page.NextCursor
		hasMore = page.HasMore
		pagesLoaded++

		if hasMore && pagesLoaded < maxPages {
			select {
			case <-ctx.Done():
				return Batch{}, ctx.Err()
			case <-time.After(c.batchPageDelay):
			}
		}
	}

	return Batch{
		Records:      records,
		NextCursor:   cursor,
		HasMore:      hasMore && pagesLoaded >= maxPages,
		TotalFetched: len(records),
	}, nil
}

// TransactionDetails fetches one transaction by hash and augments it with
// its operations. An operations failure degrades to an empty list rather
// than failing the call.
func (c *Client) TransactionDetails(ctx context.Context, hash string) (*Transaction, error) {
	data, err := c.makeRequest(ctx, "transactions", "/transactions/"+hash, nil)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, errors.Wrap(err, "could not decode transaction")
	}

	ops, err := c.TransactionOperations(ctx, hash)
	if err != nil {
		c.logger.WithError(err).WithField("tx_hash", hash).
			Warn("could not fetch operations for transaction")
		tx.Operations = []Operation{}
		tx.MainOperationType = UnknownOperationType
		return &tx, nil
	}
	tx.Operations = ops
	tx.MainOperationType = mainOperationType(ops)
	return &tx, nil
}

// TransactionOperations fetches the operations making up one transaction.
func (c *Client) TransactionOperations(ctx context.Context, hash string) ([]Operation, error) {
	page, err := fetchPage[Operation](ctx, c, "operations", "/transactions/"+hash+"/operations", nil)
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

// Assets lists network assets, optionally filtered by code and issuer.
// Absent filters impose no constraint.
func (c *Client) Assets(ctx context.Context, code, issuer, cursor string, limit int) (Page[AssetStat], error) {
	params := listParams(cursor, limit)
	if code != "" {
		params["asset_code"] = code
	}
	if issuer != "" {
		params["asset_issuer"] = issuer
	}
	return fetchPage[AssetStat](ctx, c, "assets", "/assets", params)
}

// AccountOffers lists an account's open offers. The endpoint is optional on
// some deployments, so a failure degrades to an empty page.
func (c *Client) AccountOffers(ctx context.Context, accountID, cursor string, limit int) (Page[Offer], error) {
	page, err := fetchPage[Offer](ctx, c, "offers", "/accounts/"+accountID+"/offers", listParams(cursor, limit))
	if err != nil {
		c.logger.WithError(err).WithField("account", accountID).
			Warn("could not fetch account offers")
		return Page[Offer]{Records: []Offer{}}, nil
	}
	return page, nil
}

// AccountPayments lists payment-type operations involving the account.
func (c *Client) AccountPayments(ctx context.Context, accountID, cursor string, limit int) (Page[Operation], error) {
	return fetchPage[Operation](ctx, c, "payments", "/accounts/"+accountID+"/payments", listParams(cursor, limit))
}

// AccountOperations lists an account's operations, optionally filtered by
// operation type tag.
func (c *Client) AccountOperations(ctx context.Context, accountID, cursor string, limit int, operationType string) (Page[Operation], error) {
	params := listParams(cursor, limit)
	if operationType != "" {
		params["type"] = operationType
	}
	return fetchPage[Operation](ctx, c, "operations", "/accounts/"+accountID+"/operations", params)
}

// enrichOperations runs one operations sub-fetch per transaction
// concurrently. Results land at their original index, so page order is
// preserved regardless of completion order. A failed sub-fetch substitutes
// an empty operations list and the "unknown" type for that transaction only.
func (c *Client) enrichOperations(ctx context.Context, txs []Transaction) {
	var wg sync.WaitGroup
	for i := range txs {
		wg.Add(1)
		go func(tx *Transaction) {
			defer wg.Done()
			ops, err := c.TransactionOperations(ctx, tx.Hash)
			if err != nil {
				c.logger.WithError(err).WithField("tx_hash", tx.Hash).
					Warn("could not fetch operations for transaction")
				c.metrics.enrichmentFailures.Inc()
				tx.Operations = []Operation{}
				tx.MainOperationType = UnknownOperationType
				return
			}
			tx.Operations = ops
			tx.MainOperationType = mainOperationType(ops)
		}(&txs[i])
	}
	wg.Wait()
}

func mainOperationType(ops []Operation) string {
	if len(ops) == 0 {
		return UnknownOperationType
	}
	return ops[0].Type
}

// makeRequest performs one GET against Horizon under the cache-then-
// rate-limit-then-network policy. The raw response body is what gets cached.
func (c *Client) makeRequest(ctx context.Context, endpoint, path string, params map[string]string) ([]byte, error) {
	fullURL := c.baseURL + path
	key := cache.GenerateKey(fullURL, params)
	if data, ok := c.cache.Get(key); ok {
		c.metrics.cacheHits.Inc()
		return data, nil
	}
	c.metrics.cacheMisses.Inc()

	waitStart := time.Now()
	if err := c.limiter.WaitForSlot(ctx); err != nil {
		return nil, err
	}
	c.metrics.rateLimitWait.Observe(time.Since(waitStart).Seconds())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build horizon request")
	}
	query := req.URL.Query()
	for name, value := range params {
		query.Set(name, value)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.doWithRetry(req)
	if err != nil {
		c.metrics.requests.WithLabelValues(endpoint, "error").Inc()
		return nil, errors.Wrap(err, "could not reach horizon")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.requests.WithLabelValues(endpoint, "not_found").Inc()
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.requests.WithLabelValues(endpoint, "error").Inc()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.requests.WithLabelValues(endpoint, "error").Inc()
		return nil, errors.Wrap(err, "could not read horizon response")
	}

	c.metrics.requests.WithLabelValues(endpoint, "ok").Inc()
	c.cache.Set(key, data)
	return data, nil
}

// doWithRetry retries transport-level failures with a short exponential
// backoff. HTTP status errors are not retried here.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	return backoff.RetryWithData(func() (*http.Response, error) {
		resp, err := c.hc.Do(req)
		if err != nil {
			c.logger.WithError(err).WithField("url", req.URL.Redacted()).
				Debug("transport error calling horizon, retrying")
			return nil, err
		}
		return resp, nil
	}, backoff.WithContext(newRequestBackOff(), req.Context()))
}

func newRequestBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 3 * time.Second
	b.RandomizationFactor = 0.2
	return b
}

func fetchPage[T record](ctx context.Context, c *Client, endpoint, path string, params map[string]string) (Page[T], error) {
	data, err := c.makeRequest(ctx, endpoint, path, params)
	if err != nil {
		return Page[T]{}, err
	}
	page, err := decodePage[T](data)
	if err != nil {
		return Page[T]{}, errors.Wrap(err, "could not decode "+endpoint+" page")
	}
	return page, nil
}

func listParams(cursor string, limit int) map[string]string {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	params := map[string]string{
		"order": "desc",
		"limit": strconv.Itoa(limit),
	}
	if cursor != "" {
		params["cursor"] = cursor
	}
	return params
}
