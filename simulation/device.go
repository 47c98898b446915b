package simulation

import (
	"sync"

	"github.com/sarchlab/ftlsim/flash/ftl"
	"github.com/sarchlab/ftlsim/flash/nand"
)

// A SharedDevice guards an FTL device so that the monitor can read it while
// an experiment writes to it.
type SharedDevice struct {
	lock sync.Mutex
	comp *ftl.Comp
}

// NewSharedDevice wraps a device.
func NewSharedDevice(comp *ftl.Comp) *SharedDevice {
	return &SharedDevice{comp: comp}
}

// Name returns the name of the device.
func (d *SharedDevice) Name() string {
	return d.comp.Name()
}

// Write writes data to an LBA.
func (d *SharedDevice) Write(lba int, data uint32) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.Write(lba, data)
}

// Read reads an LBA.
func (d *SharedDevice) Read(lba int) (uint32, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.Read(lba)
}

// Lookup returns where an LBA is stored.
func (d *SharedDevice) Lookup(lba int) (nand.PhysicalAddress, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.Lookup(lba)
}

// Stats returns a snapshot of the counters of the device.
func (d *SharedDevice) Stats() ftl.Status {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.Stats()
}

// BlockInfos returns a snapshot of every block.
func (d *SharedDevice) BlockInfos() []ftl.BlockInfo {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.BlockInfos()
}

// Mapping returns a snapshot of the mapped LBAs.
func (d *SharedDevice) Mapping() []ftl.MappingEntry {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.Mapping()
}

// WearMetrics returns the erase count distribution of the device.
func (d *SharedDevice) WearMetrics() ftl.WearStats {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.comp.WearMetrics()
}

// Inspect calls f with the device while no write is in progress.
func (d *SharedDevice) Inspect(f func(root any)) {
	d.lock.Lock()
	defer d.lock.Unlock()

	f(d.comp)
}

// Do runs f with exclusive access to the device.
func (d *SharedDevice) Do(f func(comp *ftl.Comp)) {
	d.lock.Lock()
	defer d.lock.Unlock()

	f(d.comp)
}
