package api

import "errors"

// Kind classifies why a fetch failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindEmptyBody
	KindDecode
)

var (
	ErrNetwork   = errors.New("network failure")
	ErrEmptyBody = errors.New("empty response")
	ErrDecode    = errors.New("malformed response")
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindEmptyBody:
		return "empty_body"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by Client for every failed fetch.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the sentinel of its kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrEmptyBody:
		return e.Kind == KindEmptyBody
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// KindOf extracts the failure kind from any error chain.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	switch {
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrEmptyBody):
		return KindEmptyBody
	case errors.Is(err, ErrDecode):
		return KindDecode
	}
	return KindUnknown
}
