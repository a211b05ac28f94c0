package aggregate

// Result carries the outcome of a best-effort block. Items is never nil, so a
// failed block still serializes as an empty list; Err keeps the failure
// visible to callers that want to tell "no data" from "could not load".
type Result[T any] struct {
	Items []T
	Err   error
}

func ok[T any](items []T) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Items: []T{}, Err: err}
}

// Failed reports whether the block degraded to an empty result because of an error
func (r Result[T]) Failed() bool {
	return r.Err != nil
}
