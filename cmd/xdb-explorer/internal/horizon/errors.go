package horizon

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the remote resource a call was primarily
// asking for does not exist (HTTP 404).
var ErrNotFound = errors.New("resource not found")

// ErrInvalidSearch is returned when an input matches neither the account
// address format nor the transaction hash format. No network call is made.
var ErrInvalidSearch = errors.New("invalid format: expected a wallet address " +
	"(56 characters, starting with \"G\") or a transaction hash (64 hexadecimal characters)")

// StatusError is a non-success HTTP response from Horizon other than 404.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("horizon returned unexpected status: %s", e.Status)
}
