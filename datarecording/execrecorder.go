package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const execInfoTable = "exec_info"

// execInfo is one property of the program execution.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder records when, where and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{
		recorder: recorder,
	}

	e.recorder.CreateTable(execInfoTable, execInfo{})

	return e
}

// Start logs the current execution.
func (e *execRecorder) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, execInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, execInfo{"Command", cmd})

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}

	e.entries = append(e.entries,
		execInfo{"Working Directory", filepath.Dir(ex)})
}

// End writes the buffered properties along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execInfoTable, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(execInfoTable, execInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}
