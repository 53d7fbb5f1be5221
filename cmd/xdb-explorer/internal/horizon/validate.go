package horizon

import "regexp"

var (
	// XDB Chain addresses are 56-character strkey-encoded public keys.
	accountIDPattern = regexp.MustCompile(`^G[A-Z2-7]{55}$`)
	// Transaction hashes are 64 hex characters.
	transactionHashPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

// ValidateAccountID reports whether s has the shape of a wallet address.
func ValidateAccountID(s string) bool {
	return accountIDPattern.MatchString(s)
}

// ValidateTransactionHash reports whether s has the shape of a transaction
// hash.
func ValidateTransactionHash(s string) bool {
	return transactionHashPattern.MatchString(s)
}

// SearchType classifies what a free-form search input refers to.
type SearchType int

const (
	SearchTypeWallet SearchType = iota + 1
	SearchTypeTransaction
)

// ClassifySearch decides whether input is a wallet address or a transaction
// hash. It returns ErrInvalidSearch when it is neither; callers must not
// issue any network request in that case.
func ClassifySearch(input string) (SearchType, error) {
	switch {
	case ValidateAccountID(input):
		return SearchTypeWallet, nil
	case ValidateTransactionHash(input):
		return SearchTypeTransaction, nil
	default:
		return 0, ErrInvalidSearch
	}
}
