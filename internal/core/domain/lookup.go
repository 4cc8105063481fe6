package domain

type LookupStatus int

const (
	LookupFound LookupStatus = iota
	LookupNotFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Lookup is the outcome of reading a record from the contract. Callers switch
// on Status instead of inspecting the payload for sentinels.
type Lookup[T any] struct {
	Status LookupStatus
	Value  T
	Err    error
}

func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Status: LookupFound, Value: v}
}

func NotFound[T any]() Lookup[T] {
	return Lookup[T]{Status: LookupNotFound}
}

func Failed[T any](err error) Lookup[T] {
	return Lookup[T]{Status: LookupFailed, Err: err}
}

func (l Lookup[T]) Found() bool {
	return l.Status == LookupFound
}
