// Package tracker implements the wire contract of BitTorrent trackers:
// building announce requests and parsing their responses, over HTTP
// (BEP 3, BEP 23) and UDP (BEP 15). It performs no I/O.
package tracker

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"btmeta/internal/metainfo"
)

// Event is the announce event. Values match the UDP tracker protocol.
type Event int32

// Tracker announce events.
const (
	None Event = iota
	Completed
	Started
	Stopped
)

var eventNames = [...]string{"", "completed", "started", "stopped"}

// String returns the name of the event as sent to HTTP trackers.
func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return ""
	}
	return eventNames[e]
}

// AnnounceParams describes this client and its transfer state to a tracker.
type AnnounceParams struct {
	PeerID     PeerID
	Port       uint16
	Uploaded   int64
	Downloaded int64
	Left       int64
	Compact    bool
	Event      Event
	// NumWant is the number of peers asked for; zero leaves it to the
	// tracker.
	NumWant int
	// Key is only sent to UDP trackers.
	Key uint32
}

func (p *AnnounceParams) validate() error {
	if p.Uploaded < 0 || p.Downloaded < 0 || p.Left < 0 {
		return fmt.Errorf("tracker: negative transfer counter (uploaded %d, downloaded %d, left %d)",
			p.Uploaded, p.Downloaded, p.Left)
	}
	return nil
}

// BuildAnnounceURL returns the HTTP announce URL for m's announce tracker.
func BuildAnnounceURL(m *metainfo.Metainfo, p AnnounceParams) (string, error) {
	return AnnounceURL(m.Announce, m.InfoHash(), p)
}

// AnnounceURL appends the announce query to base. Ordinary parameters go
// through standard query escaping; the info-hash is raw binary, so it is
// appended separately with every byte escaped.
func AnnounceURL(base string, infoHash metainfo.Hash, p AnnounceParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("tracker: announce url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("tracker: announce url %q: scheme %q is not http or https", base, u.Scheme)
	}

	params := url.Values{}
	params.Set("peer_id", string(p.PeerID[:]))
	params.Set("port", strconv.Itoa(int(p.Port)))
	params.Set("uploaded", strconv.FormatInt(p.Uploaded, 10))
	params.Set("downloaded", strconv.FormatInt(p.Downloaded, 10))
	params.Set("left", strconv.FormatInt(p.Left, 10))
	if p.Compact {
		params.Set("compact", "1")
	} else {
		params.Set("compact", "0")
	}
	if p.Event != None {
		params.Set("event", p.Event.String())
	}
	if p.NumWant > 0 {
		params.Set("numwant", strconv.Itoa(p.NumWant))
	}

	query := u.RawQuery
	if query != "" {
		query += "&"
	}
	u.RawQuery = query + params.Encode() + "&info_hash=" + EscapeBytes(infoHash[:])
	return u.String(), nil
}

// EscapeBytes percent-encodes every byte of b, including unreserved ones.
func EscapeBytes(b []byte) string {
	const hexDigits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(3 * len(b))
	for _, c := range b {
		sb.WriteByte('%')
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0f])
	}
	return sb.String()
}
