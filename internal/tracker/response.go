package tracker

import (
	"fmt"
	"time"

	"btmeta/internal/bencode"
)

// Response is a successful announce response.
type Response struct {
	Interval    time.Duration
	MinInterval time.Duration
	// Complete and Incomplete count seeders and leechers. Trackers may omit
	// them, leaving zero.
	Complete   int64
	Incomplete int64
	TrackerID  string
	Warning    string
	Peers      []Peer
}

// FailureError is the human readable reason a tracker refused an announce.
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string {
	return "tracker: failure: " + e.Reason
}

// ParseResponse decodes an HTTP tracker response body. The body must be a
// dictionary carrying either "failure reason" or both "interval" and a
// compact "peers" string.
func ParseResponse(body []byte) (*Response, error) {
	v, err := bencode.DecodeAll(body)
	if err != nil {
		return nil, fmt.Errorf("tracker: response: %w", err)
	}
	d, ok := v.(bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("tracker: response is not a dictionary: %w", bencode.ErrTypeMismatch)
	}
	if reason, ok := d.GetString("failure reason"); ok {
		return nil, &FailureError{Reason: string(reason)}
	}

	interval, err := requireSeconds(d, "interval")
	if err != nil {
		return nil, err
	}
	raw, ok := d["peers"]
	if !ok {
		return nil, fmt.Errorf("tracker: response: peers: missing: %w", bencode.ErrTypeMismatch)
	}
	blob, ok := raw.(bencode.String)
	if !ok {
		return nil, fmt.Errorf("tracker: response: peers: want compact byte string: %w", bencode.ErrTypeMismatch)
	}
	peers, err := ParseCompactPeers(blob)
	if err != nil {
		return nil, err
	}

	resp := &Response{Interval: interval, Peers: peers}
	if _, ok := d["min interval"]; ok {
		if resp.MinInterval, err = requireSeconds(d, "min interval"); err != nil {
			return nil, err
		}
	}
	if n, ok := d.GetInt("complete"); ok {
		resp.Complete = int64(n)
	}
	if n, ok := d.GetInt("incomplete"); ok {
		resp.Incomplete = int64(n)
	}
	if s, ok := d.GetString("tracker id"); ok {
		resp.TrackerID = string(s)
	}
	if s, ok := d.GetString("warning message"); ok {
		resp.Warning = string(s)
	}
	return resp, nil
}

func requireSeconds(d bencode.Dict, key string) (time.Duration, error) {
	v, ok := d[key]
	if !ok {
		return 0, fmt.Errorf("tracker: response: %s: missing: %w", key, bencode.ErrTypeMismatch)
	}
	n, ok := v.(bencode.Int)
	if !ok {
		return 0, fmt.Errorf("tracker: response: %s: want integer: %w", key, bencode.ErrTypeMismatch)
	}
	if n < 0 {
		return 0, fmt.Errorf("tracker: response: %s: negative value %d: %w", key, n, bencode.ErrMalformed)
	}
	return time.Duration(n) * time.Second, nil
}
