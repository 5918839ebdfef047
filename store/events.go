package store

import "github.com/tailored-agentic-units/tickstore/observability"

// Store event types.
const (
	EventCycleStart     observability.EventType = "store.cycle.start"
	EventCycleComplete  observability.EventType = "store.cycle.complete"
	EventRegionActivate observability.EventType = "store.region.activate"
	EventOpEnqueue      observability.EventType = "store.op.enqueue"
	EventOpReject       observability.EventType = "store.op.reject"
	EventOpComplete     observability.EventType = "store.op.complete"
	EventOpFail         observability.EventType = "store.op.fail"
	EventOpDefer        observability.EventType = "store.op.defer"
	EventCallbackPanic  observability.EventType = "store.callback.panic"
)
