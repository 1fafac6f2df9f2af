package querycache

// Status is the lifecycle state of a cache entry.
type Status int

const (
	// StatusUninitialized means no request has been issued for the key yet.
	StatusUninitialized Status = iota

	// StatusPending means the first request for the key is in flight and no
	// data has ever been stored. Background refetches of an already
	// fulfilled entry do not go back to pending; see Entry.IsFetching.
	StatusPending

	// StatusFulfilled means the last settled request succeeded.
	StatusFulfilled

	// StatusRejected means the last settled request failed. Previously
	// fulfilled data, if any, is retained alongside the error.
	StatusRejected
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Entry is an immutable snapshot of one cache entry, identified by the pair
// (endpoint name, serialized argument).
type Entry struct {
	// Status is the entry's lifecycle state.
	Status Status

	// Data is the last successful payload, or nil if none has arrived yet.
	// Errors never clear it; subscribers keep seeing the previous data while
	// a background refetch is pending and swap atomically when it resolves.
	Data any

	// Err is the last error, or nil. Cleared on the next successful fetch.
	Err error

	// Tags are the provided tags of the last successful result.
	Tags []Tag

	// IsFetching is true while any request for the key is in flight,
	// including background refetches of an already fulfilled entry.
	IsFetching bool
}

// IsLoading reports whether the entry is waiting on its very first payload.
// It is false during background refetches; check IsFetching for those.
func (e Entry) IsLoading() bool {
	return e.Status == StatusPending
}
