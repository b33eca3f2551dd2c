package resolver

import "errors"

// ErrEmptyURL is reported when a locator answers without an address.
var ErrEmptyURL = errors.New("locator returned an empty url")

// ResolutionError wraps a failed lookup for an identity. No stale address
// is ever returned alongside it.
type ResolutionError struct {
	Identity Identity
	Err      error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "resolve " + e.Identity.String() + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
