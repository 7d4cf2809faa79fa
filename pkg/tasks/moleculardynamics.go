package tasks

import (
	"context"
	"fmt"
	"math"

	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/utils"
)

// Lennard-Jones parameters in reduced units.
const (
	ljEpsilon = 1.0
	ljSigma   = 1.0
	ljCutoff  = 2.5 * ljSigma
)

type Atom struct {
	X, Y, Z    float64
	VX, VY, VZ float64
	Mass       float64
}

// A velocity Verlet run of Lennard-Jones atoms in a periodic cubic box.
type MDRun struct {
	Dt      float64
	Steps   int32
	BoxSize float64
	Atoms   []Atom
}

type MDResult struct {
	// Total energy after the last step
	Energy float64
	Atoms  []Atom
}

// MOLECULAR_DYNAMICS record: count int32, dt, steps int32, box size,
// then x y z vx vy vz mass per atom.
func EncodeMDRun(run MDRun) []byte {
	w := dispatch.NewLegacyWriter(TagMolecularDynamics).
		Int32(int32(len(run.Atoms))).
		Float64(run.Dt).
		Int32(run.Steps).
		Float64(run.BoxSize)
	for _, a := range run.Atoms {
		w.Float64s([]float64{a.X, a.Y, a.Z, a.VX, a.VY, a.VZ, a.Mass})
	}
	return w.Bytes()
}

func decodeMDRun(r *dispatch.LegacyReader) (MDRun, error) {
	n := int(r.Int32())
	run := MDRun{Dt: r.Float64(), Steps: r.Int32(), BoxSize: r.Float64()}
	if r.Err() == nil && (n < 0 || run.Steps < 0 || run.BoxSize <= 0) {
		return run, fmt.Errorf("%w: invalid molecular dynamics header", utils.ErrParse)
	}

	values := r.Float64s(n * 7)
	if err := r.Err(); err != nil {
		return run, err
	}

	run.Atoms = make([]Atom, n)
	for i := range run.Atoms {
		v := values[i*7 : i*7+7]
		run.Atoms[i] = Atom{X: v[0], Y: v[1], Z: v[2], VX: v[3], VY: v[4], VZ: v[5], Mass: v[6]}
		if run.Atoms[i].Mass <= 0 {
			return run, fmt.Errorf("%w: atom %d has non-positive mass", utils.ErrParse, i)
		}
	}
	return run, nil
}

// Result: energy, count int32, then x y z vx vy vz per atom.
func encodeMDResult(result MDResult) []byte {
	w := dispatch.NewLegacyWriter("").
		Float64(result.Energy).
		Int32(int32(len(result.Atoms)))
	for _, a := range result.Atoms {
		w.Float64s([]float64{a.X, a.Y, a.Z, a.VX, a.VY, a.VZ})
	}
	return w.Bytes()
}

// Decodes a run result. Masses are taken from the atoms that were sent.
func DecodeMDResult(data []byte, sent []Atom) (MDResult, error) {
	r := dispatch.NewLegacyReader(data)
	result := MDResult{Energy: r.Float64()}
	n := int(r.Int32())
	if r.Err() == nil && n != len(sent) {
		return result, fmt.Errorf("%w: expected %d atoms, got %d", utils.ErrParse, len(sent), n)
	}

	values := r.Float64s(n * 6)
	if err := r.Err(); err != nil {
		return result, err
	}

	result.Atoms = make([]Atom, n)
	for i := range result.Atoms {
		v := values[i*6 : i*6+6]
		result.Atoms[i] = Atom{X: v[0], Y: v[1], Z: v[2], VX: v[3], VY: v[4], VZ: v[5], Mass: sent[i].Mass}
	}
	return result, nil
}

// Nearest periodic image of a separation.
func minimumImage(d, box float64) float64 {
	return d - box*math.Round(d/box)
}

func wrap(x, box float64) float64 {
	x = math.Mod(x, box)
	if x < 0 {
		x += box
	}
	return x
}

// Computes forces into f and returns the potential energy.
func ljForces(atoms []Atom, box float64, f [][3]float64) float64 {
	for i := range f {
		f[i] = [3]float64{}
	}

	rc2 := ljCutoff * ljCutoff
	s2 := ljSigma * ljSigma
	potential := 0.0

	for i := 0; i < len(atoms); i++ {
		for j := i + 1; j < len(atoms); j++ {
			dx := minimumImage(atoms[i].X-atoms[j].X, box)
			dy := minimumImage(atoms[i].Y-atoms[j].Y, box)
			dz := minimumImage(atoms[i].Z-atoms[j].Z, box)
			r2 := dx*dx + dy*dy + dz*dz
			if r2 >= rc2 || r2 == 0 {
				continue
			}

			sr2 := s2 / r2
			sr6 := sr2 * sr2 * sr2
			sr12 := sr6 * sr6
			potential += 4 * ljEpsilon * (sr12 - sr6)

			fr := 24 * ljEpsilon * (2*sr12 - sr6) / r2
			f[i][0] += fr * dx
			f[i][1] += fr * dy
			f[i][2] += fr * dz
			f[j][0] -= fr * dx
			f[j][1] -= fr * dy
			f[j][2] -= fr * dz
		}
	}
	return potential
}

func kineticEnergy(atoms []Atom) float64 {
	k := 0.0
	for _, a := range atoms {
		k += 0.5 * a.Mass * (a.VX*a.VX + a.VY*a.VY + a.VZ*a.VZ)
	}
	return k
}

func RunMolecularDynamics(ctx context.Context, run MDRun) (MDResult, error) {
	atoms := make([]Atom, len(run.Atoms))
	copy(atoms, run.Atoms)

	box, dt := run.BoxSize, run.Dt
	forces := make([][3]float64, len(atoms))
	potential := ljForces(atoms, box, forces)

	for step := int32(0); step < run.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return MDResult{}, err
		}

		for i := range atoms {
			a := &atoms[i]
			a.VX += 0.5 * dt * forces[i][0] / a.Mass
			a.VY += 0.5 * dt * forces[i][1] / a.Mass
			a.VZ += 0.5 * dt * forces[i][2] / a.Mass
			a.X = wrap(a.X+dt*a.VX, box)
			a.Y = wrap(a.Y+dt*a.VY, box)
			a.Z = wrap(a.Z+dt*a.VZ, box)
		}

		potential = ljForces(atoms, box, forces)

		for i := range atoms {
			a := &atoms[i]
			a.VX += 0.5 * dt * forces[i][0] / a.Mass
			a.VY += 0.5 * dt * forces[i][1] / a.Mass
			a.VZ += 0.5 * dt * forces[i][2] / a.Mass
		}
	}

	return MDResult{Energy: potential + kineticEnergy(atoms), Atoms: atoms}, nil
}

func runMolecularDynamics(ctx context.Context, r *dispatch.LegacyReader) ([]byte, error) {
	run, err := decodeMDRun(r)
	if err != nil {
		return nil, err
	}

	result, err := RunMolecularDynamics(ctx, run)
	if err != nil {
		return nil, err
	}
	return encodeMDResult(result), nil
}
