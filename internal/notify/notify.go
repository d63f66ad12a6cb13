// Package notify provides realtime broadcast of domain events to
// company-scoped listeners.
//
// Stage changes are broadcast after the write commits, outbox-style: the
// transition logic only knows the Notifier interface, never the transport.
package notify

import "context"

// Notifier delivers an event to every listener subscribed to a company.
type Notifier interface {
	EmitToCompany(ctx context.Context, companyID, event string, payload interface{}) error
}

// NopNotifier discards all events. Used when no realtime backend is configured.
type NopNotifier struct{}

// EmitToCompany discards the event.
func (NopNotifier) EmitToCompany(ctx context.Context, companyID, event string, payload interface{}) error {
	return nil
}
