package importer

import "errors"

var (
	// ErrCredentialsNotFound is reported when the region has no stored credentials
	ErrCredentialsNotFound = errors.New("could not find AWS credentials")

	// ErrCommitUnavailable is returned when committing while the screen shows an error
	ErrCommitUnavailable = errors.New("cannot add clusters while the cluster list failed to load")

	// ErrAlreadyCommitted is returned by every commit after the first successful one
	ErrAlreadyCommitted = errors.New("selection already added")
)

// EnumerationError is a failed call to the provider API. Its message is the
// provider's message unchanged.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	if e.Err == nil {
		return "could not load clusters"
	}
	return e.Err.Error()
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}
