package dispatch

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/jscience/grid/pkg/utils"
)

var (
	genericEnc cbor.EncMode
	genericDec cbor.DecMode
)

func init() {
	var err error
	if genericEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if genericDec, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Encodes a generic payload: a single CBOR data item wrapped in the tag
// that names its handler.
func EncodeGeneric(tag uint64, content any) ([]byte, error) {
	return genericEnc.Marshal(cbor.Tag{Number: tag, Content: content})
}

// Splits a generic payload into its tag number and raw content.
func DecodeGeneric(payload []byte) (uint64, cbor.RawMessage, error) {
	var raw cbor.RawTag
	if err := genericDec.Unmarshal(payload, &raw); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", utils.ErrParse, err)
	}
	return raw.Number, raw.Content, nil
}

// Decodes the content of a generic payload.
func UnmarshalContent(content cbor.RawMessage, v any) error {
	if err := genericDec.Unmarshal(content, v); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrParse, err)
	}
	return nil
}

// Encodes the result of a generic task.
func MarshalResult(v any) ([]byte, error) {
	return genericEnc.Marshal(v)
}

// Decodes the result of a generic task.
func UnmarshalResult(data []byte, v any) error {
	return genericDec.Unmarshal(data, v)
}
