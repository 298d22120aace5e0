package feed

import "errors"

// Feed registry and subscription errors
var (
	// ErrUnknownFeed is returned when operating on a feed that was never registered
	ErrUnknownFeed = errors.New("unknown feed")

	// ErrDuplicateFeed is returned when registering a feed key twice
	ErrDuplicateFeed = errors.New("feed already registered")

	// ErrSubscriptionNotFound is returned when unsubscribing an unknown subscription ID
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInvalidFilterSyntax is returned when a filter expression cannot be compiled
	ErrInvalidFilterSyntax = errors.New("error when parsing filter")
)
