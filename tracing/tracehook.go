package tracing

import (
	"fmt"

	"github.com/sarchlab/ftlsim/sim/hooking"
	"github.com/sarchlab/ftlsim/sim/id"
)

// An EventWriter stores events somewhere.
type EventWriter interface {
	// Write buffers an event.
	Write(e Event)

	// Flush writes all the buffered events out.
	Flush()

	// Close flushes and releases the underlying storage.
	Close() error
}

// CollectEvents lets the writer receive the events of a domain.
func CollectEvents(domain NamedHookable, w EventWriter, ids id.Generator) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*eventHook)
		if ok && hook.w == w {
			panic(fmt.Sprintf("domain %s already writes events to %T",
				domain.Name(), w))
		}
	}

	domain.AcceptHook(&eventHook{w: w, ids: ids})
}

// An eventHook forwards the traced positions to an EventWriter.
type eventHook struct {
	w   EventWriter
	ids id.Generator
}

// Func converts the hook context and writes it.
func (h *eventHook) Func(ctx hooking.HookCtx) {
	e, ok := eventFromHook(ctx, h.ids)
	if !ok {
		return
	}

	h.w.Write(e)
}
