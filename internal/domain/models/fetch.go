package models

import "errors"

var (
	// ErrNoCredential marks a provider group skipped because no API key is configured.
	ErrNoCredential = errors.New("provider credential not configured")
	// ErrNoData marks a provider response that parsed but carried no usable values.
	ErrNoData = errors.New("provider returned no usable data")
)

// FetchResult is the outcome of one provider group: either live data or the
// group's fixed fallback together with the cause.
type FetchResult[T any] struct {
	Value    T
	Fallback bool
	Err      error
}

// Live wraps a successfully fetched value.
func Live[T any](v T) FetchResult[T] {
	return FetchResult[T]{Value: v}
}

// Fallback wraps a fallback value and the reason it was used.
func Fallback[T any](v T, cause error) FetchResult[T] {
	return FetchResult[T]{Value: v, Fallback: true, Err: cause}
}

// Source returns SourceLive or SourceFallback.
func (r FetchResult[T]) Source() string {
	if r.Fallback {
		return SourceFallback
	}
	return SourceLive
}
