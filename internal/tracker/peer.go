package tracker

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/netip"

	"btmeta/internal/bencode"
)

// ClientPrefix is the Azureus-style client tag that starts generated peer ids.
const ClientPrefix = "-BM0100-"

// PeerIDSize is the fixed length of a peer id.
const PeerIDSize = 20

// compactPeerSize is 4 bytes of IPv4 address followed by a 2 byte port.
const compactPeerSize = 6

// PeerID identifies this client to trackers and peers.
type PeerID [PeerIDSize]byte

// NewPeerID returns prefix followed by random bytes. prefix longer than a
// peer id is truncated.
func NewPeerID(prefix string) (PeerID, error) {
	var id PeerID
	n := copy(id[:], prefix)
	if _, err := rand.Read(id[n:]); err != nil {
		return id, fmt.Errorf("tracker: generating peer id: %w", err)
	}
	return id, nil
}

// ParsePeerID converts s into a PeerID. s must be exactly 20 bytes.
func ParsePeerID(s string) (PeerID, error) {
	var id PeerID
	if len(s) != PeerIDSize {
		return id, fmt.Errorf("tracker: peer id %q is %d bytes, want %d", s, len(s), PeerIDSize)
	}
	copy(id[:], s)
	return id, nil
}

// Peer is the address of a peer returned by a tracker.
type Peer struct {
	IP   netip.Addr
	Port uint16
}

func (p Peer) String() string {
	return netip.AddrPortFrom(p.IP, p.Port).String()
}

// ParseCompactPeers splits a compact peer list into 6 byte entries of
// big-endian IPv4 address and port. A length that is not a multiple of 6
// fails without returning any peer.
func ParseCompactPeers(b []byte) ([]Peer, error) {
	if len(b)%compactPeerSize != 0 {
		return nil, fmt.Errorf("tracker: compact peer list of %d bytes is not a multiple of %d: %w",
			len(b), compactPeerSize, bencode.ErrSizeMismatch)
	}

	peers := make([]Peer, 0, len(b)/compactPeerSize)
	for i := 0; i < len(b); i += compactPeerSize {
		peers = append(peers, Peer{
			IP:   netip.AddrFrom4([4]byte(b[i : i+4])),
			Port: binary.BigEndian.Uint16(b[i+4 : i+6]),
		})
	}
	return peers, nil
}

// CompactPeers is the inverse of ParseCompactPeers. Peers without an IPv4
// address are skipped.
func CompactPeers(peers []Peer) []byte {
	b := make([]byte, 0, len(peers)*compactPeerSize)
	for _, p := range peers {
		if !p.IP.Is4() {
			continue
		}
		ip := p.IP.As4()
		b = append(b, ip[:]...)
		b = binary.BigEndian.AppendUint16(b, p.Port)
	}
	return b
}
