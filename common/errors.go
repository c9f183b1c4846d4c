package common

import (
	"errors"

	"github.com/hermeznetwork/tracerr"
)

// ErrNumOverflow is used when a given value overflows the maximum capacity of the parameter
var ErrNumOverflow = errors.New("Value overflows the type")

// ErrInvalidLength is used when a byte slice does not have the length
// expected by the decoder
var ErrInvalidLength = errors.New("invalid bytes length")

// ErrAccountNotFound is used when the ledger has no account for the given
// id or address
var ErrAccountNotFound = errors.New("account not found")

// ErrNotEnoughBalance is used when a balance subtraction would make the
// balance negative
var ErrNotEnoughBalance = errors.New("not enough balance")

// ErrNotPackable is used when an amount or fee can not be represented
// exactly in its packed (mantissa, exponent) form
var ErrNotPackable = errors.New("value is not packable")

// ErrInvalidSignature is used when a signature does not verify against the
// signed message
var ErrInvalidSignature = errors.New("invalid signature")

// ErrAccountIDOutOfRange is used when an account id exceeds MaxAccountID
var ErrAccountIDOutOfRange = errors.New("account id out of range")

// ErrTokenIDOutOfRange is used when a token id exceeds MaxTokenID
var ErrTokenIDOutOfRange = errors.New("token id out of range")

// ErrInvalidTimeRange is used when a time range starts after it ends
var ErrInvalidTimeRange = errors.New("invalid time range")

// ErrZeroAddress is used when a recipient address is the zero address
var ErrZeroAddress = errors.New("zero address")

// ErrDone is used when a function returns earlier due to a cancelled context
var ErrDone = errors.New("done")

// Wrap attaches a stack trace to err. A nil err stays nil.
func Wrap(err error) error {
	return tracerr.Wrap(err)
}

// Unwrap returns the original error wrapped by Wrap
func Unwrap(err error) error {
	return tracerr.Unwrap(err)
}

// Is reports whether err, once its stack trace is removed, matches target
func Is(err, target error) bool {
	return errors.Is(Unwrap(err), target)
}

// IsErrDone returns true if the error or wrapped error is ErrDone
func IsErrDone(err error) bool {
	return Unwrap(err) == ErrDone
}
