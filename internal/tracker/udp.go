package tracker

import (
	"encoding/binary"
	"fmt"
	"time"

	"btmeta/internal/bencode"
	"btmeta/internal/metainfo"
)

// UDP tracker protocol, BEP 15.
const (
	udpProtocolID uint64 = 0x41727101980

	actionConnect  uint32 = 0
	actionAnnounce uint32 = 1
	actionError    uint32 = 3

	connectRequestSize   = 16
	connectResponseSize  = 16
	announceRequestSize  = 98
	announceResponseSize = 20 // without peers
	errorHeaderSize      = 8
)

// ConnectRequest builds the packet that opens a UDP tracker session.
func ConnectRequest(transactionID uint32) []byte {
	buf := make([]byte, 0, connectRequestSize)
	buf = binary.BigEndian.AppendUint64(buf, udpProtocolID)
	buf = binary.BigEndian.AppendUint32(buf, actionConnect)
	buf = binary.BigEndian.AppendUint32(buf, transactionID)
	return buf
}

// ParseConnectResponse returns the connection id granted by the tracker.
func ParseConnectResponse(buf []byte, transactionID uint32) (uint64, error) {
	if err := checkHeader(buf, actionConnect, transactionID, connectResponseSize); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[8:16]), nil
}

// UDPAnnounceRequest builds an announce packet for an open session.
// NumWant of zero asks for the tracker's default.
func UDPAnnounceRequest(connectionID uint64, transactionID uint32, infoHash metainfo.Hash, p AnnounceParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	numWant := int32(-1)
	if p.NumWant > 0 {
		numWant = int32(p.NumWant)
	}

	buf := make([]byte, 0, announceRequestSize)
	buf = binary.BigEndian.AppendUint64(buf, connectionID)
	buf = binary.BigEndian.AppendUint32(buf, actionAnnounce)
	buf = binary.BigEndian.AppendUint32(buf, transactionID)
	buf = append(buf, infoHash[:]...)
	buf = append(buf, p.PeerID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Downloaded))
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Left))
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Uploaded))
	buf = binary.BigEndian.AppendUint32(buf, uint32(p.Event))
	buf = binary.BigEndian.AppendUint32(buf, 0) // IP address: use the sender's
	buf = binary.BigEndian.AppendUint32(buf, p.Key)
	buf = binary.BigEndian.AppendUint32(buf, uint32(numWant))
	buf = binary.BigEndian.AppendUint16(buf, p.Port)
	return buf, nil
}

// ParseUDPAnnounceResponse decodes an announce response packet.
func ParseUDPAnnounceResponse(buf []byte, transactionID uint32) (*Response, error) {
	if err := checkHeader(buf, actionAnnounce, transactionID, announceResponseSize); err != nil {
		return nil, err
	}

	peers, err := ParseCompactPeers(buf[announceResponseSize:])
	if err != nil {
		return nil, err
	}
	return &Response{
		Interval:   time.Duration(binary.BigEndian.Uint32(buf[8:12])) * time.Second,
		Incomplete: int64(binary.BigEndian.Uint32(buf[12:16])),
		Complete:   int64(binary.BigEndian.Uint32(buf[16:20])),
		Peers:      peers,
	}, nil
}

// checkHeader validates the action and transaction id that start every
// response. An error action is turned into a FailureError.
func checkHeader(buf []byte, action, transactionID uint32, size int) error {
	if len(buf) >= errorHeaderSize && binary.BigEndian.Uint32(buf[0:4]) == actionError {
		if got := binary.BigEndian.Uint32(buf[4:8]); got != transactionID {
			return fmt.Errorf("tracker: udp error for transaction %d, want %d: %w", got, transactionID, bencode.ErrMalformed)
		}
		return &FailureError{Reason: string(buf[errorHeaderSize:])}
	}
	if len(buf) < size {
		return fmt.Errorf("tracker: udp response of %d bytes, want at least %d: %w", len(buf), size, bencode.ErrTruncated)
	}
	if got := binary.BigEndian.Uint32(buf[0:4]); got != action {
		return fmt.Errorf("tracker: udp response action %d, want %d: %w", got, action, bencode.ErrMalformed)
	}
	if got := binary.BigEndian.Uint32(buf[4:8]); got != transactionID {
		return fmt.Errorf("tracker: udp response transaction %d, want %d: %w", got, transactionID, bencode.ErrMalformed)
	}
	return nil
}
