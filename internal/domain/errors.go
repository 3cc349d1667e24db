package domain

import "errors"

var (
	// ErrDataSource means the ledger store could not be reached or queried.
	// It is fatal for the current request and never retried internally.
	ErrDataSource = errors.New("data source error")

	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrTextGenUnavailable means the text generator is missing or
	// misconfigured. Callers degrade to rule-only output.
	ErrTextGenUnavailable = errors.New("text generation unavailable")
)
