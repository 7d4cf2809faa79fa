package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/utils"
)

// Samples checked between cancellation polls.
const piCheckInterval = 1 << 16

// A Monte Carlo batch estimating pi. The same seed always yields the
// same count, wherever the batch runs.
type PiBatch struct {
	Seed    uint64 `cbor:"1,keyasint"`
	Samples int64  `cbor:"2,keyasint"`
}

type PiResult struct {
	Inside  int64 `cbor:"1,keyasint"`
	Samples int64 `cbor:"2,keyasint"`
}

// Estimate of pi from the counts.
func (r PiResult) Estimate() float64 {
	if r.Samples == 0 {
		return 0
	}
	return 4 * float64(r.Inside) / float64(r.Samples)
}

func (r *PiResult) Add(o PiResult) {
	r.Inside += o.Inside
	r.Samples += o.Samples
}

func EncodePiBatch(batch PiBatch) ([]byte, error) {
	return dispatch.EncodeGeneric(TagMonteCarloPi, batch)
}

func DecodePiResult(data []byte) (PiResult, error) {
	var r PiResult
	err := dispatch.UnmarshalResult(data, &r)
	return r, err
}

func SamplePi(ctx context.Context, batch PiBatch) (PiResult, error) {
	if batch.Samples < 0 {
		return PiResult{}, fmt.Errorf("%w: negative sample count", utils.ErrBadRequest)
	}

	rng := rand.New(rand.NewPCG(batch.Seed, batch.Seed^0x9e3779b97f4a7c15))

	var inside int64
	for i := int64(0); i < batch.Samples; i++ {
		if i%piCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return PiResult{}, err
			}
		}

		x, y := rng.Float64(), rng.Float64()
		if x*x+y*y <= 1 {
			inside++
		}
	}

	return PiResult{Inside: inside, Samples: batch.Samples}, nil
}

func runPi(ctx context.Context, content cbor.RawMessage) ([]byte, error) {
	var batch PiBatch
	if err := dispatch.UnmarshalContent(content, &batch); err != nil {
		return nil, err
	}

	result, err := SamplePi(ctx, batch)
	if err != nil {
		return nil, err
	}
	return dispatch.MarshalResult(result)
}
