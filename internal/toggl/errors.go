package toggl

import "fmt"

// ErrorKind classifies a failed fetch for the caller's messaging.
type ErrorKind int

const (
	// ErrGeneric is any HTTP or transport failure not covered below.
	ErrGeneric ErrorKind = iota
	// ErrRequestLimit means the API quota for the token is exhausted.
	ErrRequestLimit
	// ErrInvalidToken means the token was rejected.
	ErrInvalidToken
)

// FetchError is returned for any failed Toggl fetch.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Msg    string
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrRequestLimit:
		return "toggl: request limit reached, try again later"
	case ErrInvalidToken:
		return "toggl: invalid token, check settings"
	default:
		if e.Status != 0 {
			return fmt.Sprintf("toggl: HTTP %d: %s", e.Status, e.Msg)
		}
		return fmt.Sprintf("toggl: %s", e.Msg)
	}
}

// fetchErrorFor maps an HTTP status to a FetchError.
func fetchErrorFor(status int, msg string) *FetchError {
	switch status {
	case 402:
		return &FetchError{Kind: ErrRequestLimit, Status: status, Msg: msg}
	case 403:
		return &FetchError{Kind: ErrInvalidToken, Status: status, Msg: msg}
	default:
		return &FetchError{Kind: ErrGeneric, Status: status, Msg: msg}
	}
}
