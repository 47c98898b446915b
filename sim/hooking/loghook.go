package hooking

import (
	"io"
	"log"
)

// A LogHook is a hook that is responsible for recording information from the
// simulation.
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks. Positions can be
// filtered so that only the interesting part of a component is logged.
type LogHookBase struct {
	*log.Logger

	positions map[*HookPos]bool
}

// NewLogHookBase creates a LogHookBase that writes to w.
func NewLogHookBase(w io.Writer, prefix string) *LogHookBase {
	return &LogHookBase{
		Logger: log.New(w, prefix, 0),
	}
}

// OnlyAt limits the hook to the given positions.
func (h *LogHookBase) OnlyAt(positions ...*HookPos) {
	if h.positions == nil {
		h.positions = make(map[*HookPos]bool)
	}

	for _, p := range positions {
		h.positions[p] = true
	}
}

// Accepts tells whether a hook triggered at pos should be logged.
func (h *LogHookBase) Accepts(pos *HookPos) bool {
	if len(h.positions) == 0 {
		return true
	}

	return h.positions[pos]
}
