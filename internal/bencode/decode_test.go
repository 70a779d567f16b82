package bencode_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"btmeta/internal/bencode"
)

func decodeAndAssert(t *testing.T, input string, expected bencode.Value) {
	t.Helper()
	decoded, err := bencode.DecodeAll([]byte(input))
	if err != nil {
		t.Fatalf("Failed to decode input %q: %v", input, err)
	}

	if !reflect.DeepEqual(decoded, expected) {
		t.Errorf("Expected %#v but got %#v", expected, decoded)
	}
}

func TestDecodeString(t *testing.T) {
	decodeAndAssert(t, "4:spam", bencode.String("spam"))
	decodeAndAssert(t, "0:", bencode.String(""))
	decodeAndAssert(t, "10:hello12345", bencode.String("hello12345"))
	decodeAndAssert(t, "3:\x00\xff\x10", bencode.String("\x00\xff\x10"))
}

func TestDecodeInteger(t *testing.T) {
	decodeAndAssert(t, "i3e", bencode.Int(3))
	decodeAndAssert(t, "i-3e", bencode.Int(-3))
	decodeAndAssert(t, "i0e", bencode.Int(0))
	decodeAndAssert(t, "i9223372036854775807e", bencode.Int(9223372036854775807))
	decodeAndAssert(t, "i-9223372036854775808e", bencode.Int(-9223372036854775808))
}

func TestDecodeList(t *testing.T) {
	decodeAndAssert(t, "l4:spam4:eggse", bencode.List{bencode.String("spam"), bencode.String("eggs")})
	decodeAndAssert(t, "le", bencode.List{})
	decodeAndAssert(t, "lli1eel9:test testeleee", bencode.List{
		bencode.List{bencode.Int(1)},
		bencode.List{bencode.String("test test")},
		bencode.List{},
	})
}

func TestDecodeDictionary(t *testing.T) {
	decodeAndAssert(t, "d3:cow3:moo4:spam4:eggse", bencode.Dict{
		"cow":  bencode.String("moo"),
		"spam": bencode.String("eggs"),
	})
	decodeAndAssert(t, "de", bencode.Dict{})
	decodeAndAssert(t, "d4:dictd9:space keyi4eee", bencode.Dict{
		"dict": bencode.Dict{"space key": bencode.Int(4)},
	})
}

func TestDecodeReturnsRemainder(t *testing.T) {
	v, rest, err := bencode.Decode([]byte("i42e4:spam"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v != bencode.Int(42) {
		t.Errorf("Expected 42 but got %#v", v)
	}
	if string(rest) != "4:spam" {
		t.Errorf("Expected remainder %q but got %q", "4:spam", rest)
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	input := []byte("4:spam")
	v, err := bencode.DecodeAll(input)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	input[2] = 'S'
	if got := string(v.(bencode.String)); got != "spam" {
		t.Errorf("decoded value changed with its input: %q", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		input  string
		kind   error
		offset int
	}{
		{"", bencode.ErrTruncated, 0},
		{"5:abc", bencode.ErrTruncated, 2},
		{"12", bencode.ErrTruncated, 2},
		{"5abc", bencode.ErrMalformed, 1},
		{"i3", bencode.ErrTruncated, 2},
		{"ie", bencode.ErrMalformed, 1},
		{"i-e", bencode.ErrMalformed, 1},
		{"ixe", bencode.ErrMalformed, 1},
		{"i+3e", bencode.ErrMalformed, 1},
		{"i9223372036854775808e", bencode.ErrMalformed, 1},
		{"x", bencode.ErrMalformed, 0},
		{"l4:spam", bencode.ErrTruncated, 7},
		{"d3:cow", bencode.ErrTruncated, 6},
		{"d3:cowe", bencode.ErrMalformed, 6},
		{"di1ei2ee", bencode.ErrTypeMismatch, 1},
		{"dl1:ae1:be", bencode.ErrTypeMismatch, 1},
		{"i1ei2e", bencode.ErrMalformed, 3},
		// canonical form
		{"i03e", bencode.ErrMalformed, 1},
		{"i-0e", bencode.ErrMalformed, 1},
		{"i-03e", bencode.ErrMalformed, 1},
		{"03:abc", bencode.ErrMalformed, 0},
		{"d1:ai1e1:ai2ee", bencode.ErrMalformed, 7},
	}

	for _, tt := range tests {
		_, err := bencode.DecodeAll([]byte(tt.input))
		if err == nil {
			t.Errorf("DecodeAll(%q): expected error", tt.input)
			continue
		}
		if !errors.Is(err, tt.kind) {
			t.Errorf("DecodeAll(%q): expected %v, got %v", tt.input, tt.kind, err)
		}
		var serr *bencode.SyntaxError
		if !errors.As(err, &serr) {
			t.Errorf("DecodeAll(%q): expected *SyntaxError, got %T", tt.input, err)
			continue
		}
		if serr.Offset != tt.offset {
			t.Errorf("DecodeAll(%q): expected offset %d, got %d (%v)", tt.input, tt.offset, serr.Offset, err)
		}
	}
}

func TestSyntaxErrorMessage(t *testing.T) {
	_, err := bencode.DecodeAll([]byte("5:abc"))
	want := "bencode: truncated at offset 2: expected 5 bytes of string data, 3 available"
	if err == nil || err.Error() != want {
		t.Errorf("Expected %q but got %v", want, err)
	}
}

func TestLenientDecoding(t *testing.T) {
	tests := []struct {
		input    string
		expected bencode.Value
	}{
		{"i03e", bencode.Int(3)},
		{"i-0e", bencode.Int(0)},
		{"03:abc", bencode.String("abc")},
		{"l4:spam", bencode.List{bencode.String("spam")}},
		{"ll", bencode.List{bencode.List{}}},
		{"d3:cow3:moo", bencode.Dict{"cow": bencode.String("moo")}},
		{"d1:ai1e1:ai2ee", bencode.Dict{"a": bencode.Int(2)}},
	}

	for _, tt := range tests {
		if _, err := bencode.DecodeAll([]byte(tt.input)); err == nil {
			t.Errorf("DecodeAll(%q): strict mode accepted non-canonical input", tt.input)
		}

		got, err := bencode.DecodeAll([]byte(tt.input), bencode.Lenient())
		if err != nil {
			t.Errorf("DecodeAll(%q, Lenient()): %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("DecodeAll(%q, Lenient()): expected %#v but got %#v", tt.input, tt.expected, got)
		}
	}
}

func TestLenientStillRejects(t *testing.T) {
	for _, input := range []string{"", "5:abc", "di1ei2ee", "i+3e", "ixe"} {
		if _, err := bencode.DecodeAll([]byte(input), bencode.Lenient()); err == nil {
			t.Errorf("DecodeAll(%q, Lenient()): expected error", input)
		}
	}
}

func TestDecodeMaxDepth(t *testing.T) {
	ok := strings.Repeat("l", bencode.MaxDepth) + strings.Repeat("e", bencode.MaxDepth)
	if _, err := bencode.DecodeAll([]byte(ok)); err != nil {
		t.Errorf("nesting of %d levels: %v", bencode.MaxDepth, err)
	}

	deep := strings.Repeat("l", bencode.MaxDepth+1) + strings.Repeat("e", bencode.MaxDepth+1)
	_, err := bencode.DecodeAll([]byte(deep))
	if !errors.Is(err, bencode.ErrMalformed) {
		t.Errorf("nesting of %d levels: expected malformed error, got %v", bencode.MaxDepth+1, err)
	}
}
