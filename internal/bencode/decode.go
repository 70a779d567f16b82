package bencode

import (
	"bytes"
	"strconv"
)

// MaxDepth bounds how deeply lists and dictionaries may nest.
const MaxDepth = 512

// Option configures a decode call.
type Option func(*decoder)

// Lenient relaxes the canonical rules the decoder enforces by default:
// integers and string lengths with leading zeros and the integer -0 are
// accepted, end of input closes any open list or dictionary, and a duplicate
// dictionary key overwrites the earlier value.
//
// Lenient decoding exists for producers that do not emit canonical bencode.
// Values decoded this way may not re-encode to the input bytes.
func Lenient() Option {
	return func(d *decoder) {
		d.lenient = true
	}
}

// Decode decodes the first value in data and returns it together with the
// bytes that follow it. The returned value does not alias data.
func Decode(data []byte, opts ...Option) (Value, []byte, error) {
	d := &decoder{buf: data}
	for _, opt := range opts {
		opt(d)
	}

	v, err := d.value()
	if err != nil {
		return nil, nil, err
	}
	return v, data[d.pos:], nil
}

// DecodeAll decodes data as exactly one value. Trailing bytes are an error.
func DecodeAll(data []byte, opts ...Option) (Value, error) {
	v, rest, err := Decode(data, opts...)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, syntaxErr(ErrMalformed, len(data)-len(rest), "end of input", "found %d trailing bytes", len(rest))
	}
	return v, nil
}

// decoder walks buf with an explicit cursor. pos always points at the next
// unread byte.
type decoder struct {
	buf     []byte
	pos     int
	depth   int
	lenient bool
}

func (d *decoder) eof() bool {
	return d.pos >= len(d.buf)
}

func (d *decoder) value() (Value, error) {
	if d.eof() {
		return nil, syntaxErr(ErrTruncated, d.pos, "a value", "input exhausted")
	}

	switch c := d.buf[d.pos]; {
	case c >= '0' && c <= '9':
		return d.string()
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dict()
	default:
		return nil, syntaxErr(ErrMalformed, d.pos, "a digit, 'i', 'l' or 'd'", "found %q", c)
	}
}

// string reads <length>:<payload>.
func (d *decoder) string() (String, error) {
	start := d.pos
	i := d.pos
	for i < len(d.buf) && d.buf[i] >= '0' && d.buf[i] <= '9' {
		i++
	}
	if i == len(d.buf) {
		return nil, syntaxErr(ErrTruncated, i, "':' after string length", "input exhausted")
	}
	if d.buf[i] != ':' {
		return nil, syntaxErr(ErrMalformed, i, "':' after string length", "found %q", d.buf[i])
	}

	digits := d.buf[start:i]
	if !d.lenient && len(digits) > 1 && digits[0] == '0' {
		return nil, syntaxErr(ErrMalformed, start, "a canonical string length", "leading zero in %q", digits)
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil, syntaxErr(ErrMalformed, start, "a string length", "%q out of range", digits)
	}

	d.pos = i + 1
	if avail := len(d.buf) - d.pos; int64(avail) < n {
		return nil, syntaxErr(ErrTruncated, d.pos, strconv.FormatInt(n, 10)+" bytes of string data", "%d available", avail)
	}

	s := make(String, n)
	copy(s, d.buf[d.pos:])
	d.pos += int(n)
	return s, nil
}

// integer reads i<decimal>e.
func (d *decoder) integer() (Int, error) {
	start := d.pos
	end := bytes.IndexByte(d.buf[start+1:], 'e')
	if end < 0 {
		return 0, syntaxErr(ErrTruncated, len(d.buf), "'e' closing integer at offset "+strconv.Itoa(start), "input exhausted")
	}

	text := d.buf[start+1 : start+1+end]
	if !isDecimal(text) {
		return 0, syntaxErr(ErrMalformed, start+1, "a decimal integer", "found %q", text)
	}
	if !d.lenient {
		digits := bytes.TrimPrefix(text, []byte("-"))
		if len(digits) > 1 && digits[0] == '0' {
			return 0, syntaxErr(ErrMalformed, start+1, "a canonical integer", "leading zero in %q", text)
		}
		if len(text) > 1 && text[0] == '-' && digits[0] == '0' {
			return 0, syntaxErr(ErrMalformed, start+1, "a canonical integer", "negative zero")
		}
	}

	n, err := strconv.ParseInt(string(text), 10, 64)
	if err != nil {
		return 0, syntaxErr(ErrMalformed, start+1, "a 64-bit integer", "%q out of range", text)
	}
	d.pos = start + 1 + end + 1
	return Int(n), nil
}

// isDecimal reports whether b is an optional '-' followed by one or more
// ASCII digits.
func isDecimal(b []byte) bool {
	if len(b) > 0 && b[0] == '-' {
		b = b[1:]
	}
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (d *decoder) enter(offset int) error {
	d.depth++
	if d.depth > MaxDepth {
		return syntaxErr(ErrMalformed, offset, "at most "+strconv.Itoa(MaxDepth)+" levels of nesting", "")
	}
	return nil
}

// closed consumes the 'e' terminating a container opened at start. It
// reports false when more items follow.
func (d *decoder) closed(start int, what string) (bool, error) {
	if d.eof() {
		if d.lenient {
			return true, nil
		}
		return false, syntaxErr(ErrTruncated, d.pos, "'e' closing "+what+" at offset "+strconv.Itoa(start), "input exhausted")
	}
	if d.buf[d.pos] == 'e' {
		d.pos++
		return true, nil
	}
	return false, nil
}

func (d *decoder) list() (List, error) {
	start := d.pos
	if err := d.enter(start); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()
	d.pos++

	list := List{}
	for {
		done, err := d.closed(start, "list")
		if err != nil {
			return nil, err
		}
		if done {
			return list, nil
		}

		item, err := d.value()
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
}

func (d *decoder) dict() (Dict, error) {
	start := d.pos
	if err := d.enter(start); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()
	d.pos++

	dict := Dict{}
	for {
		done, err := d.closed(start, "dictionary")
		if err != nil {
			return nil, err
		}
		if done {
			return dict, nil
		}

		keyAt := d.pos
		if c := d.buf[keyAt]; c < '0' || c > '9' {
			return nil, syntaxErr(ErrTypeMismatch, keyAt, "a byte-string dictionary key", "found %q", c)
		}
		key, err := d.string()
		if err != nil {
			return nil, err
		}
		if _, dup := dict[string(key)]; dup && !d.lenient {
			return nil, syntaxErr(ErrMalformed, keyAt, "a unique dictionary key", "duplicate key %q", key)
		}

		item, err := d.value()
		if err != nil {
			return nil, err
		}
		dict[string(key)] = item
	}
}
