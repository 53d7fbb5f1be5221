package horizon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/cache"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/ratelimit"
)

const testAccount = "GABCASXIBIQB5PHRXIN5R7FW3DPF3KRDCD2G5KE4VHRZDZTEZ5JR2CGV"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(Config{
		HorizonURL:     baseURL,
		Cache:          cache.New(cache.DefaultMaxSize, cache.DefaultTTL),
		Limiter:        ratelimit.New(1000, time.Second),
		BatchPageDelay: time.Millisecond,
	})
}

func accountJSON(accountID string) string {
	return fmt.Sprintf(`{
		"account_id": %q,
		"sequence": "1234567890",
		"subentry_count": 1,
		"last_modified_time": "2024-01-02T03:04:05Z",
		"balances": [
			{"balance": "100.5000000", "asset_type": "native"},
			{"balance": "42.0000000", "asset_type": "credit_alphanum4", "asset_code": "USD", "asset_issuer": "GISSUER"}
		],
		"signers": [{"key": %q, "weight": 1, "type": "ed25519_public_key"}],
		"flags": {"auth_required": false, "auth_revocable": false, "auth_immutable": false}
	}`, accountID, accountID)
}

func txJSON(hash, pagingToken, createdAt string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"hash": %q,
		"paging_token": %q,
		"successful": true,
		"ledger": 100,
		"created_at": %q,
		"source_account": %q,
		"fee_charged": "100",
		"operation_count": 1,
		"memo_type": "none"
	}`, hash, hash, pagingToken, createdAt, testAccount)
}

func collectionJSON(records []string, hasNext bool) string {
	links := `{}`
	if hasNext {
		links = `{"next": {"href": "https://horizon.example.org/next"}}`
	}
	body := ""
	for i, rec := range records {
		if i > 0 {
			body += ","
		}
		body += rec
	}
	return fmt.Sprintf(`{"_links": %s, "_embedded": {"records": [%s]}}`, links, body)
}

func paymentOpJSON(id, from, to, amount string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"paging_token": %q,
		"type": "payment",
		"source_account": %q,
		"created_at": "2024-01-02T03:04:05Z",
		"from": %q,
		"to": %q,
		"amount": %q,
		"asset_type": "native"
	}`, id, id, from, from, to, amount)
}

func TestAccountInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/"+testAccount, r.URL.Path)
		fmt.Fprint(w, accountJSON(testAccount))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	account, err := client.AccountInfo(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, testAccount, account.AccountID)
	assert.Equal(t, "1234567890", account.Sequence)
	require.Len(t, account.Balances, 2)
	assert.Equal(t, "XDB", account.Balances[0].Asset().Key())
	assert.Equal(t, "USD:GISSUER", account.Balances[1].Asset().Key())
}

func TestAccountInfoNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"status": 404}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.AccountInfo(context.Background(), testAccount)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAccountInfoServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.AccountInfo(context.Background(), testAccount)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestRepeatedCallsAreServedFromCache(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		fmt.Fprint(w, accountJSON(testAccount))
	}))
	defer server.Close()

	limiter := ratelimit.New(8, time.Second)
	client := NewClient(Config{
		HorizonURL: server.URL,
		Cache:      cache.New(cache.DefaultMaxSize, cache.DefaultTTL),
		Limiter:    limiter,
	})

	first, err := client.AccountInfo(context.Background(), testAccount)
	require.NoError(t, err)
	second, err := client.AccountInfo(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits, "second call must be served from cache")

	// Only one rate-limiter admission was consumed for the two calls.
	for i := 0; i < 7; i++ {
		assert.True(t, limiter.CanMakeRequest())
	}
	assert.False(t, limiter.CanMakeRequest())
}

func TestTransactionsEnrichmentToleratesPartialFailure(t *testing.T) {
	page := collectionJSON([]string{
		txJSON("hash1", "1", "2024-01-03T00:00:00Z"),
		txJSON("hash2", "2", "2024-01-02T00:00:00Z"),
		txJSON("hash3", "3", "2024-01-01T00:00:00Z"),
	}, true)

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/"+testAccount+"/transactions", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/transactions/hash2/operations", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/transactions/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, collectionJSON([]string{paymentOpJSON("op1", "GFROM", testAccount, "5")}, false))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Transactions(context.Background(), testAccount, "", 20, true)
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	assert.Equal(t, []string{"hash1", "hash2", "hash3"},
		[]string{result.Records[0].Hash, result.Records[1].Hash, result.Records[2].Hash},
		"page order must be preserved")

	assert.Equal(t, OpPayment, result.Records[0].MainOperationType)
	assert.Len(t, result.Records[0].Operations, 1)

	assert.Equal(t, UnknownOperationType, result.Records[1].MainOperationType)
	assert.Empty(t, result.Records[1].Operations)

	assert.Equal(t, OpPayment, result.Records[2].MainOperationType)

	assert.Equal(t, "3", result.NextCursor)
	assert.True(t, result.HasMore)
}

// threePageServer serves three cursor-chained transaction pages of two
// records each, plus empty operations listings for every transaction.
func threePageServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"": collectionJSON([]string{
			txJSON("hash1", "1", "2024-01-06T00:00:00Z"),
			txJSON("hash2", "2", "2024-01-05T00:00:00Z"),
		}, true),
		"2": collectionJSON([]string{
			txJSON("hash3", "3", "2024-01-04T00:00:00Z"),
			txJSON("hash4", "4", "2024-01-03T00:00:00Z"),
		}, true),
		"4": collectionJSON([]string{
			txJSON("hash5", "5", "2024-01-02T00:00:00Z"),
			txJSON("hash6", "6", "2024-01-01T00:00:00Z"),
		}, false),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/"+testAccount+"/transactions", func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			page = collectionJSON(nil, false)
		}
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/transactions/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, collectionJSON(nil, false))
	})
	return httptest.NewServer(mux)
}

func TestTransactionsBatchStopsAtPageCap(t *testing.T) {
	server := threePageServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	batch, err := client.TransactionsBatch(context.Background(), testAccount, "", 2)
	require.NoError(t, err)

	require.Len(t, batch.Records, 4)
	assert.Equal(t, 4, batch.TotalFetched)
	assert.True(t, batch.HasMore, "page cap was the stopping reason")
	assert.Equal(t, "4", batch.NextCursor, "continuation cursor points at page 3")
}

func TestTransactionsBatchStopsAtEndOfData(t *testing.T) {
	server := threePageServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL)
	batch, err := client.TransactionsBatch(context.Background(), testAccount, "", 10)
	require.NoError(t, err)

	require.Len(t, batch.Records, 6)
	assert.False(t, batch.HasMore, "end of data must not report more pages")
}

func TestProgressiveChainingMatchesBatch(t *testing.T) {
	server := threePageServer(t)
	defer server.Close()

	batchClient := newTestClient(t, server.URL)
	batch, err := batchClient.TransactionsBatch(context.Background(), testAccount, "", 10)
	require.NoError(t, err)

	progressiveClient := newTestClient(t, server.URL)
	var chained []Transaction
	cursor := ""
	for {
		page, err := progressiveClient.TransactionsProgressive(context.Background(), testAccount, cursor, 20)
		require.NoError(t, err)
		chained = append(chained, page.Records...)
		if !page.HasMore || len(page.Records) == 0 {
			break
		}
		cursor = page.NextCursor
	}

	require.Equal(t, len(batch.Records), len(chained), "no duplicates and no gaps")
	for i := range chained {
		assert.Equal(t, batch.Records[i].Hash, chained[i].Hash)
	}
}

func TestTransactionDetails(t *testing.T) {
	const hash = "042dc803e27b9b49c6cccc5947025991168e0989345c2848dc0c6f183d0578e4"

	mux := http.NewServeMux()
	mux.HandleFunc("/transactions/"+hash, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, txJSON(hash, "1", "2024-01-02T03:04:05Z"))
	})
	mux.HandleFunc("/transactions/"+hash+"/operations", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, collectionJSON([]string{paymentOpJSON("op1", testAccount, "GDEST", "7")}, false))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	tx, err := client.TransactionDetails(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, hash, tx.Hash)
	assert.Equal(t, int64(100), tx.FeeCharged)
	require.Len(t, tx.Operations, 1)
	assert.Equal(t, OpPayment, tx.MainOperationType)
}

func TestTransactionDetailsDegradesOnOperationsFailure(t *testing.T) {
	const hash = "042dc803e27b9b49c6cccc5947025991168e0989345c2848dc0c6f183d0578e4"

	mux := http.NewServeMux()
	mux.HandleFunc("/transactions/"+hash, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, txJSON(hash, "1", "2024-01-02T03:04:05Z"))
	})
	mux.HandleFunc("/transactions/"+hash+"/operations", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	tx, err := client.TransactionDetails(context.Background(), hash)
	require.NoError(t, err)
	assert.Empty(t, tx.Operations)
	assert.Equal(t, UnknownOperationType, tx.MainOperationType)
}

func TestTransactionDetailsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.TransactionDetails(context.Background(), "042dc803e27b9b49c6cccc5947025991168e0989345c2848dc0c6f183d0578e4")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssetsFiltersAppendedOnlyWhenPresent(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, collectionJSON([]string{
			`{"paging_token": "a1", "asset_type": "credit_alphanum4", "asset_code": "USD", "asset_issuer": "GISSUER", "amount": "10", "num_accounts": 3}`,
		}, false))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Assets(context.Background(), "", "", "", 10)
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "asset_code")
	assert.NotContains(t, gotQuery, "asset_issuer")

	page, err := client.Assets(context.Background(), "USD", "GISSUER", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"USD"}, gotQuery["asset_code"])
	assert.Equal(t, []string{"GISSUER"}, gotQuery["asset_issuer"])
	require.Len(t, page.Records, 1)
	assert.Equal(t, "a1", page.NextCursor)
}

func TestAccountOffersDegradesToEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unsupported", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	page, err := client.AccountOffers(context.Background(), testAccount, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasMore)
}

func TestAccountStatistics(t *testing.T) {
	recent := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	old := time.Now().UTC().Add(-90 * 24 * time.Hour).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/"+testAccount, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, accountJSON(testAccount))
	})
	mux.HandleFunc("/accounts/"+testAccount+"/transactions", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, collectionJSON([]string{
			txJSON("hash1", "1", recent),
			txJSON("hash2", "2", old),
		}, false))
	})
	mux.HandleFunc("/accounts/"+testAccount+"/payments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, collectionJSON([]string{paymentOpJSON("op1", "GFROM", testAccount, "5")}, false))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	stats, err := client.AccountStatistics(context.Background(), testAccount)
	require.NoError(t, err)

	assert.Equal(t, testAccount, stats.AccountID)
	assert.Equal(t, 2, stats.TotalTransactions)
	assert.Equal(t, 1, stats.TotalPayments)
	assert.Equal(t, 1, stats.RecentActivity, "only the transaction within 30 days counts")
	assert.InDelta(t, 100.5, stats.Balances["XDB"], 1e-9)
	assert.InDelta(t, 42.0, stats.Balances["USD:GISSUER"], 1e-9)
	require.NotNil(t, stats.LastActivity)
}
