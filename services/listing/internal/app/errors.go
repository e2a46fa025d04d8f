package app

import "errors"

// ErrListingNotFound is returned when an operation references a listing id
// that does not exist in the store.
var ErrListingNotFound = errors.New("listing not found")

// ErrAssistDisabled is returned by assist operations when no AI API key was
// configured.
var ErrAssistDisabled = errors.New("assist features are not configured")
