package tasks

import (
	"context"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/utils"
)

// Largest number of points computed by one slice.
const maxMandelbrotPoints = 1 << 24

// Rows [RowStart, RowEnd) of a Width x Height view of the complex plane.
type MandelbrotSlice struct {
	Width    int32   `cbor:"1,keyasint"`
	Height   int32   `cbor:"2,keyasint"`
	RowStart int32   `cbor:"3,keyasint"`
	RowEnd   int32   `cbor:"4,keyasint"`
	MaxIter  int32   `cbor:"5,keyasint"`
	XMin     float64 `cbor:"6,keyasint"`
	XMax     float64 `cbor:"7,keyasint"`
	YMin     float64 `cbor:"8,keyasint"`
	YMax     float64 `cbor:"9,keyasint"`
}

// Escape iteration counts, row-major.
type MandelbrotRows struct {
	RowStart int32   `cbor:"1,keyasint"`
	Width    int32   `cbor:"2,keyasint"`
	Counts   []int32 `cbor:"3,keyasint"`
}

func (s MandelbrotSlice) validate() error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("%w: empty view", utils.ErrBadRequest)
	case s.RowStart < 0 || s.RowEnd > s.Height || s.RowStart > s.RowEnd:
		return fmt.Errorf("%w: rows [%d, %d) outside view", utils.ErrBadRequest, s.RowStart, s.RowEnd)
	case s.MaxIter <= 0:
		return fmt.Errorf("%w: non-positive iteration limit", utils.ErrBadRequest)
	case int64(s.Width)*int64(s.RowEnd-s.RowStart) > maxMandelbrotPoints:
		return fmt.Errorf("%w: slice too large", utils.ErrBadRequest)
	}
	return nil
}

func EncodeMandelbrotSlice(slice MandelbrotSlice) ([]byte, error) {
	return dispatch.EncodeGeneric(TagMandelbrot, slice)
}

func DecodeMandelbrotRows(data []byte) (MandelbrotRows, error) {
	var r MandelbrotRows
	err := dispatch.UnmarshalResult(data, &r)
	return r, err
}

func ComputeMandelbrot(ctx context.Context, s MandelbrotSlice) (MandelbrotRows, error) {
	if err := s.validate(); err != nil {
		return MandelbrotRows{}, err
	}

	rows := MandelbrotRows{
		RowStart: s.RowStart,
		Width:    s.Width,
		Counts:   make([]int32, 0, int(s.Width)*int(s.RowEnd-s.RowStart)),
	}

	dx := (s.XMax - s.XMin) / float64(s.Width)
	dy := (s.YMax - s.YMin) / float64(s.Height)

	for row := s.RowStart; row < s.RowEnd; row++ {
		if err := ctx.Err(); err != nil {
			return MandelbrotRows{}, err
		}

		ci := s.YMin + float64(row)*dy
		for col := int32(0); col < s.Width; col++ {
			cr := s.XMin + float64(col)*dx

			var zr, zi float64
			n := int32(0)
			for ; n < s.MaxIter && zr*zr+zi*zi <= 4; n++ {
				zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
			}
			rows.Counts = append(rows.Counts, n)
		}
	}

	return rows, nil
}

func runMandelbrot(ctx context.Context, content cbor.RawMessage) ([]byte, error) {
	var slice MandelbrotSlice
	if err := dispatch.UnmarshalContent(content, &slice); err != nil {
		return nil, err
	}

	rows, err := ComputeMandelbrot(ctx, slice)
	if err != nil {
		return nil, err
	}
	return dispatch.MarshalResult(rows)
}
