package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	supportlog "github.com/stellar/go/support/log"

	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/cache"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/config"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/favorites"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/horizon"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/ratelimit"
	"github.com/xdbchain/xdb-explorer/cmd/xdb-explorer/internal/session"
)

type explorer struct {
	cfg      *config.Config
	logger   *supportlog.Entry
	registry *prometheus.Registry
	client   *horizon.Client
}

func (e *explorer) setup() error {
	if err := e.cfg.SetValues(); err != nil {
		return err
	}
	e.logger.SetLevel(e.cfg.LogLevel)
	e.client = horizon.NewClient(horizon.Config{
		HorizonURL:     e.cfg.HorizonURL,
		Cache:          cache.New(e.cfg.CacheMaxSize, e.cfg.CacheTTL),
		Limiter:        ratelimit.New(e.cfg.RateLimitMaxRequests, e.cfg.RateLimitWindow),
		Logger:         e.logger,
		Registry:       e.registry,
		BatchPageDelay: e.cfg.BatchPageDelay,
	})
	return nil
}

func main() {
	e := &explorer{
		cfg:      &config.Config{},
		logger:   supportlog.New(),
		registry: prometheus.NewRegistry(),
	}

	rootCmd := &cobra.Command{
		Use:           "xdb-explorer",
		Short:         "read-only explorer for the XDB Chain ledger",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return e.setup()
		},
	}
	if err := e.cfg.AddFlags(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		e.searchCmd(),
		e.accountCmd(),
		e.transactionsCmd(),
		e.txCmd(),
		e.assetsCmd(),
		e.favoritesCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (e *explorer) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <address-or-hash>",
		Short: "look up a wallet address or transaction hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			kind, err := horizon.ClassifySearch(input)
			if err != nil {
				return err
			}
			switch kind {
			case horizon.SearchTypeWallet:
				return e.runWalletSearch(cmd.Context(), input)
			default:
				return e.renderTransaction(cmd.Context(), input)
			}
		},
	}
}

func (e *explorer) runWalletSearch(ctx context.Context, accountID string) error {
	sess := session.New(session.Config{
		Client:    e.client,
		Logger:    e.logger,
		Registry:  e.registry,
		PageLimit: e.cfg.PageLimit,
		IdleDelay: e.cfg.PrefetchIdleDelay,
	})
	defer sess.Close()

	if err := sess.Search(ctx, accountID); err != nil {
		return err
	}

	// Statistics load in the background; give them a bounded moment.
	deadline := time.Now().Add(10 * time.Second)
	for {
		snap := sess.Snapshot()
		if !snap.LoadingStatistics || time.Now().After(deadline) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	snap := sess.Snapshot()
	renderAccount(snap.Account)
	if snap.Statistics != nil {
		renderStatistics(snap.Statistics)
	}
	fmt.Printf("\nTransactions (%d loaded, more available: %v):\n", len(snap.Transactions), snap.HasMore)
	renderTransactionList(snap.Transactions, accountID)
	return nil
}

func (e *explorer) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "show account info and statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := e.client.AccountInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderAccount(account)
			stats, err := e.client.AccountStatistics(cmd.Context(), args[0])
			if err != nil {
				e.logger.WithError(err).Warn("could not load account statistics")
				return nil
			}
			renderStatistics(stats)
			return nil
		},
	}
}

func (e *explorer) transactionsCmd() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "transactions <address>",
		Short: "list recent transactions of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := e.client.TransactionsBatch(cmd.Context(), args[0], "", pages)
			if err != nil {
				return err
			}
			renderTransactionList(batch.Records, args[0])
			if batch.HasMore {
				fmt.Printf("\nmore pages available, continue with cursor %s\n", batch.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 2, "maximum number of pages to fetch")
	return cmd
}

func (e *explorer) txCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tx <hash>",
		Short: "show one transaction with its operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !horizon.ValidateTransactionHash(args[0]) {
				return horizon.ErrInvalidSearch
			}
			return e.renderTransaction(cmd.Context(), args[0])
		},
	}
}

func (e *explorer) assetsCmd() *cobra.Command {
	var code, issuer string
	var limit int
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "list network assets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := e.client.Assets(cmd.Context(), code, issuer, "", limit)
			if err != nil {
				return err
			}
			for _, asset := range page.Records {
				fmt.Printf("%s\t%s\taccounts=%d\tamount=%s\n",
					asset.AssetCode, asset.AssetIssuer, asset.NumAccounts, asset.Amount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "filter by asset code")
	cmd.Flags().StringVar(&issuer, "issuer", "", "filter by asset issuer")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}

func (e *explorer) favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "manage saved addresses",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <label> <address>",
			Short: "save an address",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.withFavorites(func(store *favorites.Store) error {
					return store.Add(cmd.Context(), args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "remove <address>",
			Short: "forget an address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.withFavorites(func(store *favorites.Store) error {
					return store.Remove(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "show saved addresses",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return e.withFavorites(func(store *favorites.Store) error {
					saved, err := store.List(cmd.Context())
					if err != nil {
						return err
					}
					for _, favorite := range saved {
						fmt.Printf("%s\t%s\n", favorite.Label, favorite.Address)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func (e *explorer) withFavorites(fn func(*favorites.Store) error) error {
	store, err := favorites.Open(e.cfg.FavoritesDBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("xdb-explorer %s (%s) built at %s\n",
				config.Version, config.CommitHash, config.BuildTimestamp)
		},
	}
}

func (e *explorer) renderTransaction(ctx context.Context, hash string) error {
	tx, err := e.client.TransactionDetails(ctx, hash)
	if err != nil {
		return err
	}
	fmt.Printf("Transaction %s\n", tx.Hash)
	fmt.Printf("  created:    %s\n", tx.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  source:     %s\n", tx.SourceAccount)
	fmt.Printf("  fee:        %d stroops\n", tx.FeeCharged)
	fmt.Printf("  ledger:     %d\n", tx.Ledger)
	fmt.Printf("  operations: %d\n", len(tx.Operations))
	for _, op := range tx.Operations {
		summary := horizon.Summarize(horizon.Transaction{
			SourceAccount: tx.SourceAccount,
			Operations:    []horizon.Operation{op},
		}, "")
		fmt.Printf("    %-22s %s -> %s  %s %s\n",
			summary.Kind, summary.From, summary.To, summary.Amount, summary.Asset)
	}
	return nil
}

func renderAccount(account *horizon.Account) {
	if account == nil {
		return
	}
	fmt.Printf("Account %s\n", account.AccountID)
	fmt.Printf("  sequence: %s\n", account.Sequence)
	for _, balance := range account.Balances {
		fmt.Printf("  balance:  %s %s\n", balance.Balance, balance.Asset().Display())
	}
}

func renderStatistics(stats *horizon.AccountStatistics) {
	fmt.Printf("Statistics:\n")
	fmt.Printf("  recent transactions: %d\n", stats.TotalTransactions)
	fmt.Printf("  recent payments:     %d\n", stats.TotalPayments)
	fmt.Printf("  active last 30 days: %d\n", stats.RecentActivity)
	if stats.LastActivity != nil {
		fmt.Printf("  last activity:       %s\n", stats.LastActivity.Format(time.RFC3339))
	}
}

func renderTransactionList(txs []horizon.Transaction, perspective string) {
	for _, tx := range txs {
		summary := horizon.Summarize(tx, perspective)
		fmt.Printf("%s  %s  %-22s %s %s\n",
			tx.CreatedAt.Format(time.RFC3339), shorten(tx.Hash), summary.Kind, summary.Amount, summary.Asset)
	}
}

func shorten(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:6] + "…" + hash[len(hash)-6:]
}
