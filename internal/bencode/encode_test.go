package bencode_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	jackpal "github.com/jackpal/bencode-go"

	"btmeta/internal/bencode"
)

func encodeAndAssert(t *testing.T, expected string, input bencode.Value) {
	t.Helper()
	encoded := bencode.Encode(input)
	if string(encoded) != expected {
		t.Errorf("Expected %q but got %q", expected, encoded)
	}
}

func TestEncodeInteger(t *testing.T) {
	encodeAndAssert(t, "i123e", bencode.Int(123))
	encodeAndAssert(t, "i-123e", bencode.Int(-123))
	encodeAndAssert(t, "i0e", bencode.Int(0))
}

func TestEncodeString(t *testing.T) {
	encodeAndAssert(t, "5:hello", bencode.String("hello"))
	encodeAndAssert(t, "0:", bencode.String(""))
	encodeAndAssert(t, "2:\xff\x00", bencode.String("\xff\x00"))
}

func TestEncodeList(t *testing.T) {
	encodeAndAssert(t, "li1ei2ei3ee", bencode.List{bencode.Int(1), bencode.Int(2), bencode.Int(3)})
	encodeAndAssert(t, "le", bencode.List{})
	encodeAndAssert(t, "lli1eel9:test testeleee", bencode.List{
		bencode.List{bencode.Int(1)},
		bencode.List{bencode.String("test test")},
		bencode.List{},
	})
}

func TestEncodeDictionarySortsKeys(t *testing.T) {
	encodeAndAssert(t, "d3:cow3:moo4:spam4:eggse", bencode.Dict{
		"spam": bencode.String("eggs"),
		"cow":  bencode.String("moo"),
	})
	encodeAndAssert(t, "de", bencode.Dict{})

	// raw byte order: uppercase before lowercase, prefixes first, 0xff last
	encodeAndAssert(t, "d1:Bi1e1:ai2e2:abi3e1:\xffi4ee", bencode.Dict{
		"\xff": bencode.Int(4),
		"ab":   bencode.Int(3),
		"a":    bencode.Int(2),
		"B":    bencode.Int(1),
	})

	nested := bencode.Dict{
		"z": bencode.Dict{"y": bencode.Int(1), "x": bencode.Int(2)},
		"a": bencode.List{bencode.Dict{"n": bencode.Int(3), "m": bencode.Int(4)}},
	}
	encodeAndAssert(t, "d1:ald1:mi4e1:ni3eee1:zd1:xi2e1:yi1eee", nested)
}

var canonicalInputs = []string{
	"4:spam",
	"0:",
	"3:\x00\xff\x10",
	"i3e",
	"i-3e",
	"i0e",
	"le",
	"de",
	"l4:spam4:eggse",
	"d3:cow3:moo4:spam4:eggse",
	"lli1eel9:test testeleee",
	"d8:announce40:http://tracker.example.org:6969/announce4:infod6:lengthi92063e4:name10:sample.txt12:piece lengthi32768eee",
}

func TestRoundTrip(t *testing.T) {
	for _, input := range canonicalInputs {
		v, err := bencode.DecodeAll([]byte(input))
		if err != nil {
			t.Errorf("DecodeAll(%q): %v", input, err)
			continue
		}
		if got := bencode.Encode(v); string(got) != input {
			t.Errorf("round trip of %q produced %q", input, got)
		}
	}
}

func TestLenientDecodeReencodesCanonically(t *testing.T) {
	v, err := bencode.DecodeAll([]byte("d4:spami03e3:cowi-0ee"), bencode.Lenient())
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	encodeAndAssert(t, "d3:cowi0e4:spami3ee", v)
}

func TestEncoderWritesToStream(t *testing.T) {
	var buf bytes.Buffer
	enc := bencode.NewEncoder(&buf)
	if err := enc.Encode(bencode.Int(1)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := enc.Encode(bencode.List{bencode.String("a")}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.String() != "i1el1:ae" {
		t.Errorf("Expected %q but got %q", "i1el1:ae", buf.String())
	}
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestEncoderReturnsWriterError(t *testing.T) {
	err := bencode.NewEncoder(failingWriter{}).Encode(bencode.Int(1))
	if !errors.Is(err, errWrite) {
		t.Errorf("Expected writer error but got %v", err)
	}
}

func TestNativeRendersJSON(t *testing.T) {
	v, err := bencode.DecodeAll([]byte("d3:cowl3:mooi-7ee4:spam4:eggse"))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	out, err := json.Marshal(bencode.Native(v))
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"cow":["moo",-7],"spam":"eggs"}`
	if string(out) != want {
		t.Errorf("Expected %s but got %s", want, out)
	}
}

func TestNativeEscapesInvalidUTF8(t *testing.T) {
	tests := []struct {
		input bencode.String
		want  string
	}{
		{bencode.String("caf\xc3\xa9"), "caf\xc3\xa9"},
		{bencode.String(`a\b`), `a\b`},
		{bencode.String{'a', 0xff, 'b'}, `a\xffb`},
		{bencode.String{0x00, 0x80, '\\'}, "\x00" + `\x80\\`},
	}
	for _, tt := range tests {
		if got := bencode.Native(tt.input); got != tt.want {
			t.Errorf("Native(%q) = %q, want %q", []byte(tt.input), got, tt.want)
		}
	}
}

// The jackpal decoder and encoder are an independent implementation of the
// same format; both sides must agree on every canonical input.
func TestAgreesWithJackpal(t *testing.T) {
	inputs := []string{
		"4:spam",
		"i-3e",
		"l4:spam4:eggsi12ee",
		"d3:cow3:moo4:spam4:eggse",
		"d4:dictd9:space keyi4ee4:listl1:a1:bee",
	}

	for _, input := range inputs {
		ours, err := bencode.DecodeAll([]byte(input))
		if err != nil {
			t.Errorf("DecodeAll(%q): %v", input, err)
			continue
		}
		theirs, err := jackpal.Decode(bytes.NewReader([]byte(input)))
		if err != nil {
			t.Errorf("jackpal.Decode(%q): %v", input, err)
			continue
		}
		if !reflect.DeepEqual(bencode.Native(ours), theirs) {
			t.Errorf("decoding %q: ours %#v, jackpal %#v", input, bencode.Native(ours), theirs)
		}

		var buf bytes.Buffer
		if err := jackpal.Marshal(&buf, theirs); err != nil {
			t.Errorf("jackpal.Marshal(%q): %v", input, err)
			continue
		}
		if got := bencode.Encode(ours); !bytes.Equal(got, buf.Bytes()) {
			t.Errorf("encoding %q: ours %q, jackpal %q", input, got, buf.Bytes())
		}
	}
}
