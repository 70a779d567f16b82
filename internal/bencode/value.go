// Package bencode implements the bencode serialization format used by
// BitTorrent metainfo files and tracker responses.
//
// Decoded terms are represented by Value, a closed set of four types:
// String, Int, List and Dict. Consumers are expected to type switch over
// them; no other implementation of Value exists.
package bencode

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Value is any decoded bencode term.
type Value interface {
	bencodeValue()
}

// String is a byte string. The payload is arbitrary binary data and is not
// required to be valid UTF-8.
type String []byte

// Int is a signed integer.
type Int int64

// List is an ordered sequence of values.
type List []Value

// Dict maps byte-string keys to values. Keys are raw bytes stored in a Go
// string; iteration order is meaningless, use Keys for canonical order.
type Dict map[string]Value

func (String) bencodeValue() {}
func (Int) bencodeValue()    {}
func (List) bencodeValue()   {}
func (Dict) bencodeValue()   {}

func (s String) String() string { return string(s) }

// Keys returns the dictionary keys sorted by raw byte value.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the byte string stored under key.
func (d Dict) GetString(key string) (String, bool) {
	s, ok := d[key].(String)
	return s, ok
}

// GetInt returns the integer stored under key.
func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d[key].(Int)
	return i, ok
}

// GetList returns the list stored under key.
func (d Dict) GetList(key string) (List, bool) {
	l, ok := d[key].(List)
	return l, ok
}

// GetDict returns the dictionary stored under key.
func (d Dict) GetDict(key string) (Dict, bool) {
	sub, ok := d[key].(Dict)
	return sub, ok
}

// Native converts v into plain Go values: string, int64, []any and
// map[string]any. It is meant for rendering, e.g. through encoding/json.
//
// Byte strings that are not valid UTF-8 are rendered with each invalid byte
// written as \xNN and each backslash doubled, so no byte is lost.
func Native(v Value) any {
	switch v := v.(type) {
	case String:
		return printable(v)
	case Int:
		return int64(v)
	case List:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Native(item)
		}
		return out
	case Dict:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Native(item)
		}
		return out
	}
	return nil
}

func printable(s String) string {
	if utf8.Valid(s) {
		return string(s)
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRune(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, `\x%02x`, s[i])
		case r == '\\':
			sb.WriteString(`\\`)
		default:
			sb.Write(s[i : i+size])
		}
		i += size
	}
	return sb.String()
}
