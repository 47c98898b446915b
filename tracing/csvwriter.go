package tracing

import (
	"fmt"
	"io"
)

// CSVWriter writes events as comma separated lines.
type CSVWriter struct {
	w      io.Writer
	closer io.Closer

	events     []Event
	bufferSize int
}

// NewCSVWriter creates a CSVWriter that writes to w, starting with a header
// line. If w is an io.Closer, Close closes it.
func NewCSVWriter(w io.Writer) *CSVWriter {
	t := &CSVWriter{
		w:          w,
		bufferSize: 1000,
	}

	if closer, ok := w.(io.Closer); ok {
		t.closer = closer
	}

	fmt.Fprintf(w, "ID, Device, Kind, BlockID, LBA, Pages, EraseCount, "+
		"FreeBlocks, UserWrites, NANDWrites\n")

	return t
}

// Write buffers an event.
func (t *CSVWriter) Write(e Event) {
	t.events = append(t.events, e)
	if len(t.events) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered events.
func (t *CSVWriter) Flush() {
	for _, e := range t.events {
		fmt.Fprintf(t.w, "%s, %s, %s, %d, %d, %d, %d, %d, %d, %d\n",
			e.ID,
			e.Device,
			e.Kind,
			e.BlockID,
			e.LBA,
			e.Pages,
			e.EraseCount,
			e.FreeBlocks,
			e.UserWrites,
			e.NANDWrites,
		)
	}

	t.events = nil
}

// Close flushes the events and closes the output.
func (t *CSVWriter) Close() error {
	t.Flush()

	if t.closer == nil {
		return nil
	}

	return t.closer.Close()
}
