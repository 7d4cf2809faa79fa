package protocol

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
)

// Name of the gRPC compressor, selected by clients with grpc.UseCompressor.
const CompressorName = "zstd"

// Compresses whole messages with shared stateless encoder and decoder.
// EncodeAll and DecodeAll are safe for concurrent use.
type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (c *zstdCompressor) Name() string {
	return CompressorName
}

func (c *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return &zstdWriter{compressor: c, w: w}, nil
}

func (c *zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

type zstdWriter struct {
	compressor *zstdCompressor
	w          io.Writer
	buf        bytes.Buffer
}

func (w *zstdWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *zstdWriter) Close() error {
	_, err := w.w.Write(w.compressor.encoder.EncodeAll(w.buf.Bytes(), nil))
	return err
}

func init() {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic(err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic(err)
	}
	encoding.RegisterCompressor(&zstdCompressor{encoder: encoder, decoder: decoder})
}
