package bencode

import (
	"fmt"
	"io"
	"strconv"
)

// Encode returns the canonical encoding of v. Dictionary keys are emitted
// sorted by raw byte value, so equal values always encode to equal bytes.
//
// Encode panics if v, or any value nested in it, is nil.
func Encode(v Value) []byte {
	return Append(nil, v)
}

// Append appends the canonical encoding of v to dst and returns the
// extended buffer.
func Append(dst []byte, v Value) []byte {
	switch v := v.(type) {
	case String:
		return appendString(dst, v)
	case Int:
		dst = append(dst, 'i')
		dst = strconv.AppendInt(dst, int64(v), 10)
		return append(dst, 'e')
	case List:
		dst = append(dst, 'l')
		for _, item := range v {
			dst = Append(dst, item)
		}
		return append(dst, 'e')
	case Dict:
		dst = append(dst, 'd')
		for _, k := range v.Keys() {
			dst = appendKey(dst, k)
			dst = Append(dst, v[k])
		}
		return append(dst, 'e')
	}
	panic(fmt.Sprintf("bencode: cannot encode %T", v))
}

func appendString(dst []byte, s []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ':')
	return append(dst, s...)
}

func appendKey(dst []byte, k string) []byte {
	dst = strconv.AppendInt(dst, int64(len(k)), 10)
	dst = append(dst, ':')
	return append(dst, k...)
}

// Encoder writes canonical encodings to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the canonical encoding of v. The only possible error is
// one returned by the underlying writer.
func (e *Encoder) Encode(v Value) error {
	e.buf = Append(e.buf[:0], v)
	_, err := e.w.Write(e.buf)
	return err
}
