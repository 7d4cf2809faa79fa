package client

import (
	"fmt"

	"github.com/jscience/grid/pkg/tasks"
	"github.com/jscience/grid/pkg/utils"
)

// Monte Carlo estimate of pi. Batch i samples with seed Seed+i, so the
// estimate depends only on the job parameters.
type PiJob struct {
	BatchCount      int
	SamplesPerBatch int64
	Seed            uint64

	Result tasks.PiResult
}

func NewPiJob(batches int, samples int64, seed uint64) *PiJob {
	return &PiJob{BatchCount: batches, SamplesPerBatch: samples, Seed: seed}
}

func (j *PiJob) Batches() int {
	return j.BatchCount
}

func (j *PiJob) batch(i int) tasks.PiBatch {
	return tasks.PiBatch{Seed: j.Seed + uint64(i), Samples: j.SamplesPerBatch}
}

func (j *PiJob) Encode(i int) ([]byte, error) {
	return tasks.EncodePiBatch(j.batch(i))
}

func (j *PiJob) Merge(i int, data []byte) error {
	result, err := tasks.DecodePiResult(data)
	if err != nil {
		return err
	}
	if result.Samples != j.SamplesPerBatch {
		return fmt.Errorf("%w: batch %d sampled %d points, expected %d", utils.ErrParse, i, result.Samples, j.SamplesPerBatch)
	}
	j.Result.Add(result)
	return nil
}

func (j *PiJob) Estimate() float64 {
	return j.Result.Estimate()
}

// Renders a view of the Mandelbrot set, split into bands of rows.
type MandelbrotJob struct {
	View       tasks.MandelbrotSlice
	BatchCount int

	// Escape counts of the whole view, row-major.
	Counts []int32
}

// The row range of the view is ignored, all rows are rendered.
func NewMandelbrotJob(view tasks.MandelbrotSlice, batches int) *MandelbrotJob {
	if batches > int(view.Height) {
		batches = int(view.Height)
	}

	return &MandelbrotJob{
		View:       view,
		BatchCount: batches,
		Counts:     make([]int32, int(view.Width)*int(view.Height)),
	}
}

func (j *MandelbrotJob) Batches() int {
	return j.BatchCount
}

func (j *MandelbrotJob) band(i int) tasks.MandelbrotSlice {
	slice := j.View
	height := int(j.View.Height)
	slice.RowStart = int32(height * i / j.BatchCount)
	slice.RowEnd = int32(height * (i + 1) / j.BatchCount)
	return slice
}

func (j *MandelbrotJob) Encode(i int) ([]byte, error) {
	return tasks.EncodeMandelbrotSlice(j.band(i))
}

func (j *MandelbrotJob) Merge(i int, data []byte) error {
	rows, err := tasks.DecodeMandelbrotRows(data)
	if err != nil {
		return err
	}

	band := j.band(i)
	expected := int(band.Width) * int(band.RowEnd-band.RowStart)
	if rows.RowStart != band.RowStart || rows.Width != band.Width || len(rows.Counts) != expected {
		return fmt.Errorf("%w: batch %d does not match rows [%d, %d)", utils.ErrParse, i, band.RowStart, band.RowEnd)
	}

	copy(j.Counts[int(band.RowStart)*int(band.Width):], rows.Counts)
	return nil
}

// Escape count at a pixel.
func (j *MandelbrotJob) At(x, y int) int32 {
	return j.Counts[y*int(j.View.Width)+x]
}
