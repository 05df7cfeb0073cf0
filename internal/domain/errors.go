package domain

import "errors"

// Error taxonomy shared by every stage of the poll cycle and the read path.
// Callers wrap these with fmt.Errorf("...: %w") and test with errors.Is.
var (
	// ErrFetch reports a network, timeout or non-2xx failure reaching the feed.
	ErrFetch = errors.New("fetch feed")

	// ErrMalformedFeed reports a structural or value error in the feed document.
	// It is fatal to the cycle and always raised before any store write.
	ErrMalformedFeed = errors.New("malformed feed")

	// ErrStoreWrite reports a failed upsert of a single record.
	ErrStoreWrite = errors.New("store write")

	// ErrStoreRead reports a failed scan of the store.
	ErrStoreRead = errors.New("store read")

	// ErrNotify reports a failed notification publish.
	ErrNotify = errors.New("notify")
)
