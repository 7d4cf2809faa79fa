package tasks

import (
	"context"
	"fmt"

	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/utils"
)

// Explicit diffusion of a scalar field on a unit-spaced grid.
// Boundary cells hold their values.
type DiffusionGrid struct {
	Width       int32
	Height      int32
	Dt          float64
	Diffusivity float64
	Steps       int32
	// Row-major, Width*Height values
	Values []float64
}

// FLUID_DIFFUSION record: width int32, height int32, dt, diffusivity,
// steps int32, then the row-major field.
func EncodeDiffusion(g DiffusionGrid) []byte {
	return dispatch.NewLegacyWriter(TagFluidDiffusion).
		Int32(g.Width).
		Int32(g.Height).
		Float64(g.Dt).
		Float64(g.Diffusivity).
		Int32(g.Steps).
		Float64s(g.Values).
		Bytes()
}

func decodeDiffusion(r *dispatch.LegacyReader) (DiffusionGrid, error) {
	g := DiffusionGrid{
		Width:       r.Int32(),
		Height:      r.Int32(),
		Dt:          r.Float64(),
		Diffusivity: r.Float64(),
		Steps:       r.Int32(),
	}
	if err := r.Err(); err != nil {
		return g, err
	}
	if g.Width <= 0 || g.Height <= 0 || g.Steps < 0 {
		return g, fmt.Errorf("%w: invalid diffusion header", utils.ErrParse)
	}

	// Stability limit of the explicit 5-point scheme
	if g.Diffusivity < 0 || g.Diffusivity*g.Dt > 0.25 {
		return g, fmt.Errorf("%w: unstable diffusion parameters, D*dt = %g", utils.ErrBadRequest, g.Diffusivity*g.Dt)
	}

	g.Values = r.Float64s(int(g.Width) * int(g.Height))
	return g, r.Err()
}

// Result: width int32, height int32, then the row-major field.
func DecodeDiffusionResult(data []byte) (DiffusionGrid, error) {
	r := dispatch.NewLegacyReader(data)
	g := DiffusionGrid{Width: r.Int32(), Height: r.Int32()}
	if r.Err() == nil && (g.Width <= 0 || g.Height <= 0) {
		return g, fmt.Errorf("%w: invalid diffusion result", utils.ErrParse)
	}
	g.Values = r.Float64s(int(g.Width) * int(g.Height))
	return g, r.Err()
}

func Diffuse(ctx context.Context, g DiffusionGrid) ([]float64, error) {
	w, h := int(g.Width), int(g.Height)
	cur := make([]float64, len(g.Values))
	copy(cur, g.Values)
	next := make([]float64, len(cur))
	k := g.Diffusivity * g.Dt

	for step := int32(0); step < g.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		copy(next, cur)
		for y := 1; y < h-1; y++ {
			for x := 1; x < w-1; x++ {
				i := y*w + x
				next[i] = cur[i] + k*(cur[i-1]+cur[i+1]+cur[i-w]+cur[i+w]-4*cur[i])
			}
		}
		cur, next = next, cur
	}

	return cur, nil
}

func runFluidDiffusion(ctx context.Context, r *dispatch.LegacyReader) ([]byte, error) {
	g, err := decodeDiffusion(r)
	if err != nil {
		return nil, err
	}

	values, err := Diffuse(ctx, g)
	if err != nil {
		return nil, err
	}

	return dispatch.NewLegacyWriter("").
		Int32(g.Width).
		Int32(g.Height).
		Float64s(values).
		Bytes(), nil
}
