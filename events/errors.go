package events

import "errors"

// Sentinel errors for store and hub operations.
var (
	// ErrNotFound is returned when a requested context has no log.
	ErrNotFound = errors.New("events: context not found")

	// ErrEmptySessionID is returned when an event has no agent name set.
	ErrEmptySessionID = errors.New("events: event has no agent name")

	// ErrStoreClosed is returned by a store operation after Close.
	ErrStoreClosed = errors.New("events: store is closed")
)
