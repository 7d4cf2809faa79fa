package dispatch

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/jscience/grid/pkg/utils"
)

// Longest accepted legacy type tag.
const MaxTagLength = 64

// Reads the type tag at the front of a legacy record.
// The tag is a big-endian uint16 byte length followed by that many bytes,
// which must be 1 to MaxTagLength characters of [A-Z0-9_].
// Returns the tag and the remainder of the record.
func ReadTag(payload []byte) (string, []byte, error) {
	if len(payload) < 2 {
		return "", nil, fmt.Errorf("%w: record too short for a tag", utils.ErrParse)
	}

	n := int(binary.BigEndian.Uint16(payload))
	if n == 0 || n > MaxTagLength {
		return "", nil, fmt.Errorf("%w: tag length %d out of range", utils.ErrParse, n)
	}
	if len(payload) < 2+n {
		return "", nil, fmt.Errorf("%w: truncated tag", utils.ErrParse)
	}

	tag := payload[2 : 2+n]
	for _, c := range tag {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return "", nil, fmt.Errorf("%w: invalid tag character %q", utils.ErrParse, c)
		}
	}

	return string(tag), payload[2+n:], nil
}

// Decodes the fixed-layout fields of a legacy record.
// The first error sticks; later reads return zero values.
type LegacyReader struct {
	r   *bytes.Reader
	err error
}

func NewLegacyReader(data []byte) *LegacyReader {
	return &LegacyReader{r: bytes.NewReader(data)}
}

func (r *LegacyReader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.BigEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: truncated record", utils.ErrParse)
		}
		r.err = err
	}
}

func (r *LegacyReader) Int32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *LegacyReader) Float64() float64 {
	var v float64
	r.read(&v)
	return v
}

// Reads n doubles. The count is checked against the remaining bytes
// before anything is allocated.
func (r *LegacyReader) Float64s(n int) []float64 {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.r.Len()/8 {
		r.err = fmt.Errorf("%w: record holds fewer than %d values", utils.ErrParse, n)
		return nil
	}
	v := make([]float64, n)
	r.read(v)
	return v
}

func (r *LegacyReader) UTF() string {
	var n uint16
	r.read(&n)
	if r.err != nil {
		return ""
	}
	if int(n) > r.r.Len() {
		r.err = fmt.Errorf("%w: truncated string", utils.ErrParse)
		return ""
	}
	buf := make([]byte, n)
	r.read(buf)
	if r.err == nil && !utf8.Valid(buf) {
		r.err = fmt.Errorf("%w: invalid utf-8 string", utils.ErrParse)
	}
	return string(buf)
}

// Number of unread bytes.
func (r *LegacyReader) Remaining() int {
	return r.r.Len()
}

func (r *LegacyReader) Err() error {
	return r.err
}

// Encodes legacy records.
type LegacyWriter struct {
	buf bytes.Buffer
}

// Starts a record with a type tag. An empty tag starts an untagged record,
// which is how results are encoded.
func NewLegacyWriter(tag string) *LegacyWriter {
	w := &LegacyWriter{}
	if tag != "" {
		w.UTF(tag)
	}
	return w
}

func (w *LegacyWriter) Int32(v int32) *LegacyWriter {
	binary.Write(&w.buf, binary.BigEndian, v)
	return w
}

func (w *LegacyWriter) Float64(v float64) *LegacyWriter {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
	return w
}

func (w *LegacyWriter) Float64s(v []float64) *LegacyWriter {
	for _, x := range v {
		w.Float64(x)
	}
	return w
}

// Writes a string with a uint16 length prefix. Strings longer than
// 65535 bytes are truncated.
func (w *LegacyWriter) UTF(s string) *LegacyWriter {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	binary.Write(&w.buf, binary.BigEndian, uint16(len(s)))
	w.buf.WriteString(s)
	return w
}

func (w *LegacyWriter) Bytes() []byte {
	return w.buf.Bytes()
}
