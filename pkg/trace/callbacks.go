package trace

import "github.com/charmbracelet/log"

// Handle identifies a traced resource: an event, a stream or a buffer.
type Handle uintptr

// StreamEvent pairs an event with the stream it is recorded on or waited for.
type StreamEvent struct {
	Event  Handle
	Stream Handle
}

// Callbacks holds one registry per lifecycle event kind.
type Callbacks struct {
	EventCreation      *Registry[Handle]
	EventDeletion      *Registry[Handle]
	EventRecord        *Registry[StreamEvent]
	EventWait          *Registry[StreamEvent]
	MemoryAllocation   *Registry[Handle]
	MemoryDeallocation *Registry[Handle]
	StreamCreation     *Registry[Handle]
}

// NewCallbacks creates the seven lifecycle registries. Callback failures are
// logged to logger.
func NewCallbacks(logger *log.Logger) *Callbacks {
	return &Callbacks{
		EventCreation:      NewRegistry[Handle]("event creation", logger),
		EventDeletion:      NewRegistry[Handle]("event deletion", logger),
		EventRecord:        NewRegistry[StreamEvent]("event record", logger),
		EventWait:          NewRegistry[StreamEvent]("event wait", logger),
		MemoryAllocation:   NewRegistry[Handle]("memory allocation", logger),
		MemoryDeallocation: NewRegistry[Handle]("memory deallocation", logger),
		StreamCreation:     NewRegistry[Handle]("stream creation", logger),
	}
}

// LogAll registers a debug-level logging callback on every registry.
func (c *Callbacks) LogAll(logger *log.Logger) {
	logHandle := func(name string) Callback[Handle] {
		return func(h Handle) error {
			logger.Debug(name, "handle", uint64(h))
			return nil
		}
	}
	logStreamEvent := func(name string) Callback[StreamEvent] {
		return func(e StreamEvent) error {
			logger.Debug(name, "event", uint64(e.Event), "stream", uint64(e.Stream))
			return nil
		}
	}

	c.EventCreation.AddCallback(logHandle(c.EventCreation.Name()))
	c.EventDeletion.AddCallback(logHandle(c.EventDeletion.Name()))
	c.EventRecord.AddCallback(logStreamEvent(c.EventRecord.Name()))
	c.EventWait.AddCallback(logStreamEvent(c.EventWait.Name()))
	c.MemoryAllocation.AddCallback(logHandle(c.MemoryAllocation.Name()))
	c.MemoryDeallocation.AddCallback(logHandle(c.MemoryDeallocation.Name()))
	c.StreamCreation.AddCallback(logHandle(c.StreamCreation.Name()))
}
