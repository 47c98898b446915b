// Package monitoring serves the state of running simulations over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/monitoring/web"
	"github.com/sarchlab/ftlsim/sim/id"
)

// A Device is a flash device that the monitor can show. Implementations must
// be safe to call from the HTTP handlers while the device is being written.
type Device interface {
	Name() string
	Stats() ftl.Status
	BlockInfos() []ftl.BlockInfo
	Mapping() []ftl.MappingEntry

	// Inspect calls f with the underlying device while no write is in
	// progress.
	Inspect(f func(root any))
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the devices.
type Monitor struct {
	portNumber  int
	openBrowser bool
	ids         id.Generator
	listener    net.Listener

	devicesLock sync.Mutex
	devices     []Device

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		ids: id.NewSequential("bar-"),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitoring page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterDevice registers a device to be monitored.
func (m *Monitor) RegisterDevice(d Device) {
	m.devicesLock.Lock()
	defer m.devicesLock.Unlock()

	for _, registered := range m.devices {
		if registered.Name() == d.Name() {
			log.Panicf("device %s is already registered", d.Name())
		}
	}

	m.devices = append(m.devices, d)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.ids.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the HTTP handler that serves the monitoring API and pages.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/devices", m.listDevices)
	r.HandleFunc("/api/device/{name}", m.deviceStatus)
	r.HandleFunc("/api/device/{name}/blocks", m.deviceBlocks)
	r.HandleFunc("/api/device/{name}/mapping", m.deviceMapping)
	r.HandleFunc("/api/device/{name}/field/{path}", m.deviceField)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		if err != nil && !isClosedErr(err) {
			log.Panic(err)
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return port
}

// StopServer stops accepting connections.
func (m *Monitor) StopServer() {
	if m.listener == nil {
		return
	}

	err := m.listener.Close()
	if err != nil && !isClosedErr(err) {
		dieOnErr(err)
	}

	m.listener = nil
}

func isClosedErr(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}

func (m *Monitor) listDevices(w http.ResponseWriter, _ *http.Request) {
	m.devicesLock.Lock()
	devices := make([]Device, len(m.devices))
	copy(devices, m.devices)
	m.devicesLock.Unlock()

	statuses := make([]ftl.Status, 0, len(devices))
	for _, d := range devices {
		statuses = append(statuses, d.Stats())
	}

	writeJSON(w, statuses)
}

func (m *Monitor) deviceStatus(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	writeJSON(w, d.Stats())
}

func (m *Monitor) deviceBlocks(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	writeJSON(w, d.BlockInfos())
}

func (m *Monitor) deviceMapping(w http.ResponseWriter, r *http.Request) {
	d := m.findDeviceOr404(w, mux.Vars(r)["name"])
	if d == nil {
		return
	}

	writeJSON(w, d.Mapping())
}

// deviceField serializes a field of the device, addressed by a dot separated
// path such as blocks.3.
func (m *Monitor) deviceField(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	d := m.findDeviceOr404(w, vars["name"])
	if d == nil {
		return
	}

	fields := strings.Split(vars["path"], ".")
	buf := new(bytes.Buffer)

	var err error

	d.Inspect(func(root any) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(root)
		serializer.SetMaxDepth(1)

		err = serializer.SetEntryPoint(fields)
		if err != nil {
			return
		}

		err = serializer.Serialize(buf)
	})

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) findDeviceOr404(w http.ResponseWriter, name string) Device {
	m.devicesLock.Lock()
	defer m.devicesLock.Unlock()

	for _, d := range m.devices {
		if d.Name() == name {
			return d
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Device not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	snapshots := make([]progressBarSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		snapshots = append(snapshots, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, snapshots)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
