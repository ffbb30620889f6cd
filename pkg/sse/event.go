// Package sse follows an event stream while it is copied to a client. The
// relay's push route forwards the backend's event stream untouched and uses
// this package only to observe what went by.
package sse

// Event is one dispatched event-stream event.
type Event struct {
	// Type is the "event:" field. Empty means "message".
	Type string

	// Data holds every "data:" field of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the "[DONE]" end-of-stream sentinel
// some backends send as a final data event.
func (e *Event) IsDone() bool {
	return e.Data == "[DONE]"
}
