package store

import "errors"

var (
	// ErrNotAuthenticated is returned by operations that require a
	// session user when there is none. No remote calls are made.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSelfChat is returned when a user tries to open a direct chat
	// with themselves.
	ErrSelfChat = errors.New("cannot start a direct chat with yourself")
)

// RemoteError reports a failed data-service or feed call. It carries
// the backend's human-readable message for direct display.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Message
}

func remoteError(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Message: err.Error()}
}
