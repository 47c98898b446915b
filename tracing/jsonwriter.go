package tracing

import (
	"encoding/json"
	"io"
	"sync"
)

// JSONWriter writes events as a JSON array.
type JSONWriter struct {
	w          io.Writer
	closer     io.Closer
	lock       sync.Mutex
	firstEvent bool
	closed     bool
}

// NewJSONWriter creates a JSONWriter that writes to w. If w is an io.Closer,
// Close closes it.
func NewJSONWriter(w io.Writer) *JSONWriter {
	t := &JSONWriter{
		w:          w,
		firstEvent: true,
	}

	if closer, ok := w.(io.Closer); ok {
		t.closer = closer
	}

	t.mustWrite([]byte("[\n"))

	return t
}

// Write writes an event immediately.
func (t *JSONWriter) Write(e Event) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.firstEvent {
		t.firstEvent = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	b, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}

	t.mustWrite(b)
}

// Flush does nothing as events are not buffered.
func (t *JSONWriter) Flush() {
}

// Close terminates the array and closes the output.
func (t *JSONWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	t.mustWrite([]byte("\n]\n"))

	if t.closer == nil {
		return nil
	}

	return t.closer.Close()
}

func (t *JSONWriter) mustWrite(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
