package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"btmeta/internal/bencode"
	"btmeta/internal/metainfo"
	"btmeta/internal/tracker"
)

const (
	// maxResponseSize caps how much of an HTTP tracker response is read.
	maxResponseSize = 1 << 20
	udpPacketSize   = 1 << 16
)

var errUnsupportedScheme = errors.New("unsupported tracker scheme")

// requestError is a failure to build an announce request. No network
// traffic has happened and repeating the request cannot help.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

// statusError is a non-200 answer from an HTTP tracker.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tracker responded with status %d %s", e.code, http.StatusText(e.code))
}

// announcer performs announces over the network. Each call is independent;
// an announcer holds no per-announce state.
type announcer struct {
	client  *http.Client
	timeout time.Duration
	retries uint64
	// initialBackoff is the wait before the first retry.
	initialBackoff time.Duration
}

func newAnnouncer(client *http.Client, timeout time.Duration, retries uint64) *announcer {
	return &announcer{
		client:         client,
		timeout:        timeout,
		retries:        retries,
		initialBackoff: 500 * time.Millisecond,
	}
}

// announceAll announces to every tracker concurrently and merges the peers
// they return, dropping duplicates. It fails only when every tracker failed.
func (a *announcer) announceAll(ctx context.Context, urls []string, infoHash metainfo.Hash, p tracker.AnnounceParams) ([]tracker.Peer, error) {
	if len(urls) == 0 {
		return nil, errNoTrackers
	}

	type result struct {
		resp *tracker.Response
		err  error
	}
	results := make([]result, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			resp, err := a.announce(ctx, u, infoHash, p)
			results[i] = result{resp, err}
		}(i, u)
	}
	wg.Wait()

	var (
		peers []tracker.Peer
		errs  []error
	)
	for i, r := range results {
		if r.err != nil {
			slog.Warn("announce failed", "tracker", urls[i], "error", r.err)
			errs = append(errs, fmt.Errorf("%s: %w", urls[i], r.err))
			continue
		}
		if r.resp.Warning != "" {
			slog.Warn("tracker warning", "tracker", urls[i], "message", r.resp.Warning)
		}
		slog.Info("announced", "tracker", urls[i], "peers", len(r.resp.Peers), "interval", r.resp.Interval)
		peers = append(peers, r.resp.Peers...)
	}
	if len(errs) == len(urls) {
		return nil, errors.Join(errs...)
	}
	return uniquePeers(peers), nil
}

// announce sends one announce, retrying with exponential backoff while the
// failure is in the network round trip. A tracker that answered, even with
// a failure reason, is not retried.
func (a *announcer) announce(ctx context.Context, rawURL string, infoHash metainfo.Hash, p tracker.AnnounceParams) (*tracker.Response, error) {
	var (
		resp  *tracker.Response
		final error
	)
	op := func() error {
		r, err := a.announceOnce(ctx, rawURL, infoHash, p)
		if err != nil && retryable(err) {
			slog.Debug("announce attempt failed", "tracker", rawURL, "error", err)
			return err
		}
		resp, final = r, err
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.initialBackoff
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, a.retries), ctx)); err != nil {
		return nil, err
	}
	return resp, final
}

func (a *announcer) announceOnce(ctx context.Context, rawURL string, infoHash metainfo.Hash, p tracker.AnnounceParams) (*tracker.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &requestError{fmt.Errorf("announce url: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	switch u.Scheme {
	case "http", "https":
		return a.announceHTTP(ctx, rawURL, infoHash, p)
	case "udp":
		return a.announceUDP(ctx, u.Host, infoHash, p)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedScheme, u.Scheme)
	}
}

func (a *announcer) announceHTTP(ctx context.Context, base string, infoHash metainfo.Hash, p tracker.AnnounceParams) (*tracker.Response, error) {
	requestURL, err := tracker.AnnounceURL(base, infoHash, p)
	if err != nil {
		return nil, &requestError{err}
	}
	slog.Debug("request URL", "url", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &requestError{err}
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making GET request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}
	return tracker.ParseResponse(body)
}

// announceUDP runs the connect and announce exchanges of BEP 15 on one
// socket. The context deadline bounds both.
func (a *announcer) announceUDP(ctx context.Context, host string, infoHash metainfo.Hash, p tracker.AnnounceParams) (*tracker.Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", host)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, udpPacketSize)

	tx := newTransactionID()
	packet, err := udpRoundTrip(conn, tracker.ConnectRequest(tx), buf)
	if err != nil {
		return nil, err
	}
	connID, err := tracker.ParseConnectResponse(packet, tx)
	if err != nil {
		return nil, err
	}

	tx = newTransactionID()
	req, err := tracker.UDPAnnounceRequest(connID, tx, infoHash, p)
	if err != nil {
		return nil, &requestError{err}
	}
	if packet, err = udpRoundTrip(conn, req, buf); err != nil {
		return nil, err
	}
	return tracker.ParseUDPAnnounceResponse(packet, tx)
}

func udpRoundTrip(conn net.Conn, req, buf []byte) ([]byte, error) {
	if _, err := conn.Write(req); err != nil {
		return nil, err
	}
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// retryable reports whether err happened in the network round trip before a
// tracker produced an answer: network failures and 5xx statuses.
func retryable(err error) bool {
	var (
		ferr *tracker.FailureError
		rerr *requestError
	)
	if errors.As(err, &ferr) || errors.As(err, &rerr) || errors.Is(err, errUnsupportedScheme) {
		return false
	}
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.code >= 500
	}
	for _, kind := range []error{bencode.ErrTruncated, bencode.ErrMalformed, bencode.ErrTypeMismatch, bencode.ErrSizeMismatch} {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}
