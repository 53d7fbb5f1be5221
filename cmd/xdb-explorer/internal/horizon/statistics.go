package horizon

import (
	"context"
	"strconv"
	"time"
)

const (
	// statisticsPageLimit bounds the recent-transactions and recent-payments
	// pages the statistics reduce runs over.
	statisticsPageLimit = 50

	recentActivityWindow = 30 * 24 * time.Hour
)

// AccountStatistics is a derived read over an account's recent activity.
// Counts are bounded by statisticsPageLimit, they are not lifetime totals.
type AccountStatistics struct {
	AccountID         string
	Sequence          string
	Balances          map[string]float64
	TotalTransactions int
	TotalPayments     int
	RecentActivity    int
	Signers           []Signer
	Flags             Flags
	LastActivity      *time.Time
	AccountAge        time.Time
}

// AccountStatistics fetches account info plus bounded recent transaction and
// payment pages and reduces them. There is no caching beyond what the
// underlying fetches already provide.
func (c *Client) AccountStatistics(ctx context.Context, accountID string) (*AccountStatistics, error) {
	account, err := c.AccountInfo(ctx, accountID)
	if err != nil {
		return nil, err
	}
	transactions, err := c.Transactions(ctx, accountID, "", statisticsPageLimit, false)
	if err != nil {
		return nil, err
	}
	payments, err := c.AccountPayments(ctx, accountID, "", statisticsPageLimit)
	if err != nil {
		return nil, err
	}

	stats := &AccountStatistics{
		AccountID:         account.AccountID,
		Sequence:          account.Sequence,
		Balances:          make(map[string]float64, len(account.Balances)),
		TotalTransactions: len(transactions.Records),
		TotalPayments:     len(payments.Records),
		Signers:           account.Signers,
		Flags:             account.Flags,
		AccountAge:        account.LastModifiedTime,
	}

	for _, balance := range account.Balances {
		value, err := strconv.ParseFloat(balance.Balance, 64)
		if err != nil {
			c.logger.WithError(err).WithField("asset", balance.Asset().Key()).
				Warn("skipping unparsable balance")
			continue
		}
		stats.Balances[balance.Asset().Key()] = value
	}

	cutoff := time.Now().Add(-recentActivityWindow)
	for _, tx := range transactions.Records {
		if tx.CreatedAt.After(cutoff) {
			stats.RecentActivity++
		}
	}
	if len(transactions.Records) > 0 {
		last := transactions.Records[0].CreatedAt
		stats.LastActivity = &last
	}
	return stats, nil
}
