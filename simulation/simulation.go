// Package simulation puts devices, the data recorder, the tracers and the
// monitor of one run together.
package simulation

import (
	"errors"
	"log"
	"time"

	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/monitoring"
	"github.com/sarchlab/ftlsim/sim/id"
	"github.com/sarchlab/ftlsim/tracing"
)

// A Simulation provides the services that the devices of a run share.
type Simulation struct {
	id  string
	ids id.Generator

	dataRecorder datarecording.DataRecorder
	gcRecorder   *tracing.GCRecorder
	eventWriter  tracing.EventWriter
	logTracer    *tracing.LogTracer
	monitor      *monitoring.Monitor

	devices         []*SharedDevice
	deviceNameIndex map[string]int
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// IDGenerator returns the generator used for recorded rows.
func (s *Simulation) IDGenerator() id.Generator {
	return s.ids
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// if recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterDevice attaches the recorder, the tracers and the monitor to a
// device. The returned SharedDevice is the only handle that should be used to
// access the device afterwards.
func (s *Simulation) RegisterDevice(comp *ftl.Comp) *SharedDevice {
	name := comp.Name()
	if _, found := s.deviceNameIndex[name]; found {
		log.Panicf("device %s already registered", name)
	}

	if s.gcRecorder != nil {
		comp.AcceptHook(s.gcRecorder)
	}

	if s.eventWriter != nil {
		tracing.CollectEvents(comp, s.eventWriter, s.ids)
	}

	if s.logTracer != nil {
		comp.AcceptHook(s.logTracer)
	}

	d := NewSharedDevice(comp)

	if s.monitor != nil {
		s.monitor.RegisterDevice(d)
	}

	s.devices = append(s.devices, d)
	s.deviceNameIndex[name] = len(s.devices) - 1

	return d
}

// GetDeviceByName returns the device with the given name, or nil.
func (s *Simulation) GetDeviceByName(name string) *SharedDevice {
	idx, found := s.deviceNameIndex[name]
	if !found {
		return nil
	}

	return s.devices[idx]
}

// Devices returns all the registered devices.
func (s *Simulation) Devices() []*SharedDevice {
	return s.devices
}

// CreateProgressBar creates a progress bar. The bar is shown by the monitor
// when monitoring is enabled.
func (s *Simulation) CreateProgressBar(
	name string,
	total uint64,
) *monitoring.ProgressBar {
	if s.monitor != nil {
		return s.monitor.CreateProgressBar(name, total)
	}

	return &monitoring.ProgressBar{
		ID:        s.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// CompleteProgressBar stops showing a bar.
func (s *Simulation) CompleteProgressBar(bar *monitoring.ProgressBar) {
	if s.monitor != nil {
		s.monitor.CompleteProgressBar(bar)
	}
}

// Terminate flushes everything the simulation recorded and releases the
// recorder, the trace and the monitoring server.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.eventWriter != nil {
		errs = append(errs, s.eventWriter.Close())
		s.eventWriter = nil
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
		s.dataRecorder = nil
	}

	if s.monitor != nil {
		s.monitor.StopServer()
		s.monitor = nil
	}

	return errors.Join(errs...)
}
