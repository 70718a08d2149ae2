package github

import "fmt"

// ErrorKind classifies a failed fetch for the caller's messaging. Every kind
// short-circuits reconciliation the same way; the kind only changes what the
// user is told.
type ErrorKind int

const (
	// ErrGeneric is any HTTP or transport failure not covered below.
	ErrGeneric ErrorKind = iota
	// ErrUnauthenticated means the token was rejected.
	ErrUnauthenticated
	// ErrRateLimited means GitHub throttled the request.
	ErrRateLimited
)

// FetchError is returned for any failed snapshot fetch.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Msg    string
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrUnauthenticated:
		return "github: invalid token, check settings"
	case ErrRateLimited:
		return "github: rate limited, try again later"
	default:
		if e.Status != 0 {
			return fmt.Sprintf("github: HTTP %d: %s", e.Status, e.Msg)
		}
		return fmt.Sprintf("github: %s", e.Msg)
	}
}

// fetchErrorFor maps an HTTP status to a FetchError.
func fetchErrorFor(status int, msg string) *FetchError {
	switch {
	case status == 401:
		return &FetchError{Kind: ErrUnauthenticated, Status: status, Msg: msg}
	case status == 403 || status == 429:
		return &FetchError{Kind: ErrRateLimited, Status: status, Msg: msg}
	default:
		return &FetchError{Kind: ErrGeneric, Status: status, Msg: msg}
	}
}
