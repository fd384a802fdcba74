package event

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnection is returned by a listener to signal that the resource
	// the event fired for is unusable and the operation should restart
	// against a fresh one.
	ErrDisconnection = errors.New("disconnection")

	// ErrListenerNotFound is returned when removing a listener that is not registered.
	ErrListenerNotFound = errors.New("listener not registered")

	// ErrArgCount is returned when an event is fired with the wrong number of arguments.
	ErrArgCount = errors.New("wrong number of event arguments")
)

// UnknownEventError reports an event name no catalog bound to the target declares.
type UnknownEventError struct {
	Event  string
	Target any
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("no such event %q for target %T", e.Event, e.Target)
}

// ConfigurationError reports an illegal listen modifier combination.
type ConfigurationError struct {
	Event   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("event %q: %s", e.Event, e.Message)
}

// TargetError reports a target that resolved to something unable to carry listeners.
type TargetError struct {
	Catalog string
	Target  any
}

func (e *TargetError) Error() string {
	if e.Catalog == "" {
		return fmt.Sprintf("no event catalog accepts target %T", e.Target)
	}
	return fmt.Sprintf("%s events cannot be attached to %T", e.Catalog, e.Target)
}

// ListenerReturnError reports a retval listener whose replacement tuple has the wrong shape.
type ListenerReturnError struct {
	Event string
	Want  int
	Got   int
}

func (e *ListenerReturnError) Error() string {
	return fmt.Sprintf("event %q: retval listener returned %d values, want %d", e.Event, e.Got, e.Want)
}

// Disconnected wraps cause so that errors.Is(err, ErrDisconnection) holds.
func Disconnected(cause error) error {
	if cause == nil {
		return ErrDisconnection
	}
	return fmt.Errorf("%w: %w", ErrDisconnection, cause)
}
