package tasks

import (
	"context"
	"fmt"
	"math"

	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/utils"
)

// Plummer softening length, in the units of the positions.
const NBodySoftening = 10.0

// Particles per unit of work handed to the worker pool.
const nbodyChunk = 64

type Body struct {
	X, Y, Z    float64
	VX, VY, VZ float64
	Mass       float64
}

// One integration step of a gravitating system.
type NBodyStep struct {
	Dt     float64
	G      float64
	Bodies []Body
}

// NBODY record: count int32, dt, G, then x y z vx vy vz mass per body.
func EncodeNBodyStep(step NBodyStep) []byte {
	w := dispatch.NewLegacyWriter(TagNBody).
		Int32(int32(len(step.Bodies))).
		Float64(step.Dt).
		Float64(step.G)
	for _, b := range step.Bodies {
		w.Float64s([]float64{b.X, b.Y, b.Z, b.VX, b.VY, b.VZ, b.Mass})
	}
	return w.Bytes()
}

func decodeNBodyStep(r *dispatch.LegacyReader) (NBodyStep, error) {
	n := int(r.Int32())
	step := NBodyStep{Dt: r.Float64(), G: r.Float64()}
	if n < 0 {
		return step, fmt.Errorf("%w: negative body count", utils.ErrParse)
	}

	values := r.Float64s(n * 7)
	if err := r.Err(); err != nil {
		return step, err
	}

	step.Bodies = make([]Body, n)
	for i := range step.Bodies {
		v := values[i*7 : i*7+7]
		step.Bodies[i] = Body{X: v[0], Y: v[1], Z: v[2], VX: v[3], VY: v[4], VZ: v[5], Mass: v[6]}
	}
	return step, nil
}

// Result: count int32, then x y z vx vy vz per body.
func encodeBodies(bodies []Body) []byte {
	w := dispatch.NewLegacyWriter("").Int32(int32(len(bodies)))
	for _, b := range bodies {
		w.Float64s([]float64{b.X, b.Y, b.Z, b.VX, b.VY, b.VZ})
	}
	return w.Bytes()
}

// Decodes a step result. Masses are taken from the bodies that were sent.
func DecodeNBodyResult(data []byte, sent []Body) ([]Body, error) {
	r := dispatch.NewLegacyReader(data)
	n := int(r.Int32())
	if r.Err() == nil && n != len(sent) {
		return nil, fmt.Errorf("%w: expected %d bodies, got %d", utils.ErrParse, len(sent), n)
	}

	values := r.Float64s(n * 6)
	if err := r.Err(); err != nil {
		return nil, err
	}

	bodies := make([]Body, n)
	for i := range bodies {
		v := values[i*6 : i*6+6]
		bodies[i] = Body{X: v[0], Y: v[1], Z: v[2], VX: v[3], VY: v[4], VZ: v[5], Mass: sent[i].Mass}
	}
	return bodies, nil
}

// Advances the system by one semi-implicit Euler step.
// Accelerations are computed in parallel on the pool.
func StepNBody(ctx context.Context, step NBodyStep, pool *utils.WorkerPool) ([]Body, error) {
	n := len(step.Bodies)
	acc := make([][3]float64, n)
	eps2 := NBodySoftening * NBodySoftening

	err := pool.Range(ctx, n, nbodyChunk, func(start, end int) {
		for i := start; i < end; i++ {
			bi := step.Bodies[i]
			var ax, ay, az float64
			for j, bj := range step.Bodies {
				if i == j {
					continue
				}
				dx, dy, dz := bj.X-bi.X, bj.Y-bi.Y, bj.Z-bi.Z
				d2 := dx*dx + dy*dy + dz*dz + eps2
				f := step.G * bj.Mass / (d2 * math.Sqrt(d2))
				ax += f * dx
				ay += f * dy
				az += f * dz
			}
			acc[i] = [3]float64{ax, ay, az}
		}
	})
	if err != nil {
		return nil, err
	}

	out := make([]Body, n)
	for i, b := range step.Bodies {
		b.VX += acc[i][0] * step.Dt
		b.VY += acc[i][1] * step.Dt
		b.VZ += acc[i][2] * step.Dt
		b.X += b.VX * step.Dt
		b.Y += b.VY * step.Dt
		b.Z += b.VZ * step.Dt
		out[i] = b
	}
	return out, nil
}

func nbodyHandler(threads int) dispatch.LegacyHandler {
	return func(ctx context.Context, r *dispatch.LegacyReader) ([]byte, error) {
		step, err := decodeNBodyStep(r)
		if err != nil {
			return nil, err
		}

		bodies, err := StepNBody(ctx, step, utils.NewWorkerPoolSize(threads))
		if err != nil {
			return nil, err
		}
		return encodeBodies(bodies), nil
	}
}
