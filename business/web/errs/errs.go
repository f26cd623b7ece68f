// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"context"
	"errors"
	"net/http"

	"github.com/ardanlabs/gjchain/foundation/blockchain/ledger"
	"github.com/ardanlabs/gjchain/foundation/blockchain/state"
	"github.com/ardanlabs/gjchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gjchain/foundation/blockchain/worker"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap gives access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromChain marks the errors the blockchain raises for a bad or conflicting
// request as trusted so the caller sees the message. Any other error is
// returned as is and reported as an internal error.
func FromChain(err error) error {
	switch {
	case errors.Is(err, state.ErrInsufficientFunds),
		errors.Is(err, state.ErrInvalidAmount),
		errors.Is(err, storage.ErrInvalidAddress),
		errors.Is(err, ledger.ErrBlockRejected):
		return NewTrusted(err, http.StatusBadRequest)

	case errors.Is(err, state.ErrChainMoved),
		errors.Is(err, context.Canceled):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, worker.ErrShutdown),
		errors.Is(err, state.ErrNoWorker):
		return NewTrusted(err, http.StatusServiceUnavailable)
	}

	return err
}
