// Package event publishes graph run lifecycle events.
//
// The executor emits an Event when a run starts or ends, when each node
// starts and finishes, and when parallel branches fork and join. Consumers
// subscribe to a Bus to drive progress displays or audit logs without
// touching run state.
//
// # Usage
//
//	bus := event.NewBus(event.DefaultBusConfig)
//	defer bus.Close()
//
//	bus.Subscribe([]string{event.TypeNodeCompleted}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        p := evt.Payload()
//	        fmt.Println(p.NodeID, "done in", p.Duration)
//	        return nil
//	    }))
//
//	result, err := compiled.Run(ctx, state, flowgraph.WithEventBus(bus))
//
// Delivery is asynchronous. Each subscription has its own buffered channel
// and goroutine, so a slow subscriber never blocks other subscribers.
package event
