package simulation

import (
	"fmt"
	"io"

	"github.com/rs/xid"
	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/monitoring"
	"github.com/sarchlab/ftlsim/sim/id"
	"github.com/sarchlab/ftlsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	parallelIDs    bool
	recordingOn    bool
	outputFileName string
	traceTarget    string
	logWriter      io.Writer
	verbose        bool
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
}

// MakeBuilder creates a new builder. By default, the simulation records into
// a new SQLite file and is not monitored.
func MakeBuilder() Builder {
	return Builder{
		recordingOn: true,
	}
}

// WithParallelIDs makes the recorded rows use globally unique IDs instead of
// sequential ones.
func (b Builder) WithParallelIDs() Builder {
	b.parallelIDs = true
	return b
}

// WithoutRecording disables the data recorder.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets where the data recorder writes. It is either a
// SQLite file name or a clickhouse:// URL.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithTrace streams device events to a target understood by
// tracing.OpenWriter.
func (b Builder) WithTrace(target string) Builder {
	b.traceTarget = target
	return b
}

// WithLogTracer prints device events to w.
func (b Builder) WithLogTracer(w io.Writer, verbose bool) Builder {
	b.logWriter = w
	b.verbose = verbose

	return b
}

// WithMonitoring turns on the monitoring server.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page once the server is up.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.openBrowser {
		panic("browser cannot be opened when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:              xid.New().String(),
		deviceNameIndex: make(map[string]int),
	}

	s.ids = id.NewSequential("")
	if b.parallelIDs {
		s.ids = id.NewParallel()
	}

	if err := b.buildRecorder(s); err != nil {
		return nil, err
	}

	if err := b.buildTracers(s); err != nil {
		s.Terminate()
		return nil, err
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(b.monitorPort).
			WithBrowser(b.openBrowser)
		s.monitor.StartServer()
	}

	return s, nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	if !b.recordingOn {
		return nil
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "ftlsim_" + s.id
	}

	recorder, err := datarecording.Open(outputPath)
	if err != nil {
		return fmt.Errorf("opening data recorder: %w", err)
	}

	s.dataRecorder = recorder
	s.gcRecorder = tracing.NewGCRecorder(recorder, s.ids)

	return nil
}

func (b Builder) buildTracers(s *Simulation) error {
	if b.traceTarget != "" {
		w, err := tracing.OpenWriter(b.traceTarget)
		if err != nil {
			return fmt.Errorf("opening trace: %w", err)
		}

		s.eventWriter = w
	}

	if b.logWriter != nil {
		s.logTracer = tracing.NewLogTracer(b.logWriter, b.verbose)
	}

	return nil
}
