package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"btmeta/internal/tracker"
)

// Environment variables consulted before flags are parsed.
const (
	envPeerID = "BTMETA_PEER_ID"
	envPort   = "BTMETA_PORT"
)

type config struct {
	peerID   tracker.PeerID
	port     uint16
	timeout  time.Duration
	retries  uint64
	logLevel slog.Level
}

// logLevel adapts slog.Level to flag.Value.
type logLevel struct {
	level *slog.Level
}

func (l logLevel) String() string {
	if l.level == nil {
		return ""
	}
	return strings.ToLower(l.level.String())
}

func (l logLevel) Set(s string) error {
	switch strings.ToLower(s) {
	case "debug":
		*l.level = slog.LevelDebug
	case "info":
		*l.level = slog.LevelInfo
	case "warning", "warn":
		*l.level = slog.LevelWarn
	case "error":
		*l.level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", s)
	}
	return nil
}

// parseConfig reads flags from args, with defaults taken from the
// environment. It returns the remaining positional arguments.
func parseConfig(args []string, stderr io.Writer, getenv func(string) string) (*config, []string, error) {
	cfg := &config{logLevel: slog.LevelWarn}

	fs := flag.NewFlagSet("btmeta", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: btmeta [flags] decode <bencoded-string> | info <file> | peers <file>")
		fs.PrintDefaults()
	}

	defaultPort := uint64(6881)
	if v := getenv(envPort); v != "" {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: invalid port %q", envPort, v)
		}
		defaultPort = p
	}

	peerID := fs.String("peer-id", getenv(envPeerID), "20 byte peer id (random with client prefix when empty)")
	port := fs.Uint64("port", defaultPort, "port this client listens on, reported to trackers")
	fs.DurationVar(&cfg.timeout, "timeout", 15*time.Second, "timeout of a single tracker request")
	fs.Uint64Var(&cfg.retries, "retries", 2, "retries of a tracker request after a network failure")
	fs.Var(logLevel{&cfg.logLevel}, "log-level", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if *port == 0 || *port > 65535 {
		return nil, nil, fmt.Errorf("invalid port %d", *port)
	}
	cfg.port = uint16(*port)

	var err error
	if *peerID == "" {
		cfg.peerID, err = tracker.NewPeerID(tracker.ClientPrefix)
	} else {
		cfg.peerID, err = tracker.ParsePeerID(*peerID)
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// errNoTrackers is returned for torrents without any announce URL.
var errNoTrackers = errors.New("torrent lists no trackers")
