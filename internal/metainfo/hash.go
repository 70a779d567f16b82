package metainfo

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"btmeta/internal/bencode"
)

// HashSize is the length of a SHA-1 digest: piece hashes and info-hashes.
const HashSize = sha1.Size

// Hash is a SHA-1 digest.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

// ParseHash parses the 40 character hex form returned by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if hex.DecodedLen(len(s)) != HashSize {
		return h, fmt.Errorf("metainfo: hash %q: want %d hex digits", s, 2*HashSize)
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("metainfo: hash %q: %w", s, err)
	}
	return h, nil
}

// InfoHash re-encodes info canonically and returns its SHA-1 digest. This
// identifies a torrent to trackers and peers.
func InfoHash(info bencode.Value) Hash {
	h := sha1.New()
	// writes to a hash.Hash never fail
	_ = bencode.NewEncoder(h).Encode(info)

	var sum Hash
	h.Sum(sum[:0])
	return sum
}
