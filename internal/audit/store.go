package audit

import "context"

// Sink accepts audit events. Write-only sinks (message brokers) implement
// just this.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink that can also be read back, for the demo's audit endpoint.
type Store interface {
	Sink
	List(ctx context.Context) ([]Event, error)
}
