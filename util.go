package main

import (
	"crypto/rand"
	"encoding/binary"

	"btmeta/internal/tracker"
)

// newTransactionID returns a random id for matching UDP tracker replies.
func newTransactionID() uint32 {
	var b [4]byte
	// on failure b stays zero, which is still a valid id
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

// uniquePeers drops repeated peers, keeping the first occurrence of each.
func uniquePeers(peers []tracker.Peer) []tracker.Peer {
	seen := make(map[tracker.Peer]bool, len(peers))
	out := make([]tracker.Peer, 0, len(peers))
	for _, p := range peers {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
