package host

import "github.com/tailored-agentic-units/tickstore/observability"

// Driver event types.
const (
	EventStart       observability.EventType = "host.start"
	EventStop        observability.EventType = "host.stop"
	EventSubmitDrop  observability.EventType = "host.submit.drop"
	EventSubmitPanic observability.EventType = "host.submit.panic"
)
