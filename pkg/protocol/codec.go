package protocol

import (
	cbor "github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// Name of the gRPC codec, selected by clients with grpc.CallContentSubtype.
const CodecName = "cbor"

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCodec() (*cborCodec, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return &cborCodec{enc: em, dec: dm}, nil
}

func (c *cborCodec) Name() string                       { return CodecName }
func (c *cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c *cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

var wireCodec *cborCodec

func init() {
	codec, err := newCodec()
	if err != nil {
		panic(err)
	}
	wireCodec = codec
	encoding.RegisterCodec(codec)
}

// Marshal encodes a message the same way it is encoded on the wire.
func Marshal(v any) ([]byte, error) {
	return wireCodec.Marshal(v)
}

// Unmarshal decodes a message encoded by Marshal.
func Unmarshal(data []byte, v any) error {
	return wireCodec.Unmarshal(data, v)
}
