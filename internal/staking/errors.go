package staking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned for empty, unparseable or non-positive user input
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrTransactionRejected is returned when the wallet declines to sign
	ErrTransactionRejected = errors.New("transaction rejected")
	// ErrTransactionFailed is returned for reverts and network faults
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrDataUnavailable is returned when a read has not resolved or there is no account
	ErrDataUnavailable = errors.New("data unavailable")

	ErrMalformedStakes   = fmt.Errorf("%w: stakes vector must have exactly %d elements", ErrDataUnavailable, stakesVectorLen)
	ErrNoAccount         = fmt.Errorf("%w: wallet not connected", ErrDataUnavailable)
	ErrTxInFlight        = errors.New("a transaction is already in flight")
	ErrActionUnavailable = errors.New("action not available in the current tier state")
	ErrNotApproved       = errors.New("amount exceeds allowance")
)

// ErrorKind is the coarse category of an error, used by the API layer
type ErrorKind string

const (
	KindInvalidAmount       ErrorKind = "INVALID_AMOUNT"
	KindTransactionRejected ErrorKind = "TRANSACTION_REJECTED"
	KindTransactionFailed   ErrorKind = "TRANSACTION_FAILED"
	KindDataUnavailable     ErrorKind = "DATA_UNAVAILABLE"
	KindBusy                ErrorKind = "BUSY"
	KindConflict            ErrorKind = "CONFLICT"
	KindUnknown             ErrorKind = "UNKNOWN"
)

// Classify maps an error returned by this package to its kind
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrTransactionRejected):
		return KindTransactionRejected
	case errors.Is(err, ErrTransactionFailed):
		return KindTransactionFailed
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrTxInFlight):
		return KindBusy
	case errors.Is(err, ErrActionUnavailable), errors.Is(err, ErrNotApproved):
		return KindConflict
	}
	return KindUnknown
}

// txError labels a submission error with the method and guarantees it is
// classified as either rejected or failed.
func txError(method string, err error) error {
	if errors.Is(err, ErrTransactionRejected) || errors.Is(err, ErrTransactionFailed) {
		return fmt.Errorf("%s: %w", method, err)
	}
	return fmt.Errorf("%s: %w: %w", method, ErrTransactionFailed, err)
}
