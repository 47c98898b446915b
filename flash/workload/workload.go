// Package workload generates the LBA sequences that hosts write to flash
// devices.
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// Names of the built-in workloads.
const (
	Sequential = "sequential"
	Cyclic     = "cyclic"
	Uniform    = "uniform"
	HotCold    = "hot-cold"
)

// A Workload produces the LBA of the next host write.
type Workload interface {
	// Name returns the name of the workload.
	Name() string

	// Next returns the next LBA to write.
	Next() int
}

// A Writer accepts host writes.
type Writer interface {
	Write(lba int, data uint32) error
}

// Options configure the workloads created by New.
type Options struct {
	// NumLBAs is the logical capacity of the device.
	NumLBAs int

	// Seed seeds the random workloads.
	Seed int64

	// Period is the number of LBAs a cyclic workload cycles through. The whole
	// device is used if it is 0.
	Period int

	// HotLBAs is the number of hot LBAs of a hot-cold workload. It defaults to
	// a tenth of the device.
	HotLBAs int

	// HotRatio is the fraction of hot-cold writes that go to hot LBAs. It
	// defaults to 0.9.
	HotRatio float64
}

// New creates a workload by name.
func New(name string, opts Options) (Workload, error) {
	if opts.NumLBAs <= 0 {
		return nil, fmt.Errorf("workload %s needs a positive number of LBAs",
			name)
	}

	if opts.Period < 0 || opts.HotLBAs < 0 || opts.HotRatio < 0 {
		return nil, fmt.Errorf(
			"workload %s: period, hot LBAs and hot ratio cannot be negative",
			name)
	}

	switch name {
	case Sequential:
		return NewSequential(opts.NumLBAs), nil
	case Cyclic:
		period := opts.Period
		if period == 0 {
			period = opts.NumLBAs
		}

		if period > opts.NumLBAs {
			return nil, fmt.Errorf("cyclic period %d exceeds %d LBAs",
				period, opts.NumLBAs)
		}

		return NewCyclic(period), nil
	case Uniform, "", "random":
		return NewUniform(opts.NumLBAs, opts.Seed), nil
	case HotCold:
		hotLBAs := opts.HotLBAs
		if hotLBAs == 0 {
			hotLBAs = max(1, opts.NumLBAs/10)
		}

		hotRatio := opts.HotRatio
		if hotRatio == 0 {
			hotRatio = 0.9
		}

		if hotLBAs > opts.NumLBAs || hotRatio < 0 || hotRatio > 1 {
			return nil, fmt.Errorf(
				"invalid hot-cold workload: %d hot LBAs of %d, ratio %.2f",
				hotLBAs, opts.NumLBAs, hotRatio)
		}

		return NewHotCold(opts.NumLBAs, hotLBAs, hotRatio, opts.Seed), nil
	default:
		return nil, fmt.Errorf("unknown workload %q", name)
	}
}

// Names lists the workload names New accepts.
func Names() []string {
	return []string{Sequential, Cyclic, Uniform, HotCold}
}

// SequentialWorkload writes every LBA in order and starts over.
type SequentialWorkload struct {
	numLBAs int
	next    int
}

// NewSequential creates a workload that writes 0, 1, ..., numLBAs-1, 0, ...
func NewSequential(numLBAs int) *SequentialWorkload {
	return &SequentialWorkload{numLBAs: numLBAs}
}

// Name returns "sequential".
func (w *SequentialWorkload) Name() string {
	return Sequential
}

// Next returns the next LBA.
func (w *SequentialWorkload) Next() int {
	lba := w.next
	w.next = (w.next + 1) % w.numLBAs

	return lba
}

// CyclicWorkload repeats the first period LBAs. With a period of 1, every
// write goes to LBA 0.
type CyclicWorkload struct {
	SequentialWorkload
}

// NewCyclic creates a workload that cycles through LBAs [0, period).
func NewCyclic(period int) *CyclicWorkload {
	return &CyclicWorkload{SequentialWorkload{numLBAs: period}}
}

// Name returns "cyclic".
func (w *CyclicWorkload) Name() string {
	return Cyclic
}

// UniformWorkload picks every LBA with the same probability.
type UniformWorkload struct {
	numLBAs int
	rng     *rand.Rand
}

// NewUniform creates a uniformly random workload. The same seed always
// produces the same sequence.
func NewUniform(numLBAs int, seed int64) *UniformWorkload {
	return &UniformWorkload{
		numLBAs: numLBAs,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Name returns "uniform".
func (w *UniformWorkload) Name() string {
	return Uniform
}

// Next returns the next LBA.
func (w *UniformWorkload) Next() int {
	return w.rng.Intn(w.numLBAs)
}

// HotColdWorkload sends most writes to a small set of hot LBAs at the start
// of the address space. The remaining LBAs are cold.
type HotColdWorkload struct {
	numLBAs  int
	hotLBAs  int
	hotRatio float64
	rng      *rand.Rand
}

// NewHotCold creates a skewed workload in which a hotRatio fraction of the
// writes go to LBAs [0, hotLBAs).
func NewHotCold(
	numLBAs, hotLBAs int,
	hotRatio float64,
	seed int64,
) *HotColdWorkload {
	return &HotColdWorkload{
		numLBAs:  numLBAs,
		hotLBAs:  hotLBAs,
		hotRatio: hotRatio,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Name returns "hot-cold".
func (w *HotColdWorkload) Name() string {
	return HotCold
}

// Next returns the next LBA.
func (w *HotColdWorkload) Next() int {
	coldLBAs := w.numLBAs - w.hotLBAs
	if coldLBAs == 0 || w.rng.Float64() < w.hotRatio {
		return w.rng.Intn(w.hotLBAs)
	}

	return w.hotLBAs + w.rng.Intn(coldLBAs)
}

// Run issues n writes from the workload to every writer, in lockstep, so
// that all writers see the same sequence. The data of the i-th write is i.
// Run stops at the first failed write and returns how many writes every
// writer completed together with the error. progress, if not nil, is called
// after each write.
func Run(
	ctx context.Context,
	wl Workload,
	n int,
	progress func(done int),
	writers ...Writer,
) (int, error) {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		lba := wl.Next()

		for _, w := range writers {
			err := w.Write(lba, uint32(i))
			if err != nil {
				return i, &WriteError{LBA: lba, Index: i, Err: err}
			}
		}

		if progress != nil {
			progress(i + 1)
		}
	}

	return n, nil
}

// A WriteError reports the write that stopped a run.
type WriteError struct {
	LBA   int
	Index int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write #%d to LBA %d: %v", e.Index, e.LBA, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError reports whether err stopped a run in the middle of a write.
func IsWriteError(err error) bool {
	var writeErr *WriteError
	return errors.As(err, &writeErr)
}
