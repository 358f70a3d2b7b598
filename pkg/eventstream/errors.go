package eventstream

import "errors"

var (
	// ErrNilEvent indicates a nil catalog event payload was provided to a publisher.
	ErrNilEvent = errors.New("nil catalog event")

	// ErrUnknownProvider is returned for an events.provider value with no publisher.
	ErrUnknownProvider = errors.New("unknown event stream provider")
)
