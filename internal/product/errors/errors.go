// Package errors provides custom error types for product-related operations.
package errors

import "errors"

var (
	// ErrProductNotFound is returned when an operation presupposes a product that does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrPersistence wraps unexpected failures of the product store.
	ErrPersistence = errors.New("product store failure")

	// ErrIDMismatch is returned when the identifier in an update body differs from the addressed one.
	ErrIDMismatch = errors.New("product id mismatch")
)
