// Package tasks implements the scientific task handlers executed by workers,
// and by clients when they compute a batch locally.
package tasks

import (
	"runtime"

	"github.com/jscience/grid/pkg/dispatch"
)

// Generic payload tags.
const (
	TagMonteCarloPi uint64 = 50001
	TagMandelbrot   uint64 = 50002
)

// Legacy record tags.
const (
	TagNBody             = "NBODY"
	TagMolecularDynamics = "MOLECULAR_DYNAMICS"
	TagFluidDiffusion    = "FLUID_DIFFUSION"
)

// Registers all handlers. Threads bounds the parallelism of handlers that
// split their work; zero means one per CPU.
func Register(d *dispatch.Dispatcher, threads int) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	d.RegisterGeneric(TagMonteCarloPi, runPi)
	d.RegisterGeneric(TagMandelbrot, runMandelbrot)
	d.RegisterLegacy(TagNBody, nbodyHandler(threads))
	d.RegisterLegacy(TagMolecularDynamics, runMolecularDynamics)
	d.RegisterLegacy(TagFluidDiffusion, runFluidDiffusion)
}

// Returns a dispatcher with all handlers registered.
func NewDispatcher(threads int) *dispatch.Dispatcher {
	d := dispatch.NewDispatcher()
	Register(d, threads)
	return d
}
