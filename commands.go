package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"btmeta/internal/bencode"
	"btmeta/internal/metainfo"
	"btmeta/internal/tracker"
)

func decodeCommand(w io.Writer, bencodedValue string) error {
	slog.Info("calling Decode command")
	decoded, err := bencode.DecodeAll([]byte(bencodedValue))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(bencode.Native(decoded))
}

func infoCommand(w io.Writer, file string) error {
	slog.Info("calling Info command", "file", file)
	m, err := metainfo.Load(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Tracker URL: %s\n", m.Announce)
	fmt.Fprintf(w, "Length: %d\n", m.Info.Length)
	fmt.Fprintf(w, "Info Hash: %s\n", m.InfoHash())
	fmt.Fprintf(w, "Piece Length: %d\n", m.Info.PieceLength)
	fmt.Fprintln(w, "Piece Hashes:")
	for _, h := range m.Info.Pieces {
		fmt.Fprintln(w, h)
	}
	return nil
}

func peersCommand(ctx context.Context, w io.Writer, cfg *config, file string) error {
	slog.Info("calling Peers command", "file", file)
	m, err := metainfo.Load(file)
	if err != nil {
		return err
	}

	params := tracker.AnnounceParams{
		PeerID:  cfg.peerID,
		Port:    cfg.port,
		Left:    m.Info.Length,
		Compact: true,
		Key:     newTransactionID(),
	}
	a := newAnnouncer(&http.Client{}, cfg.timeout, cfg.retries)

	peers, err := a.announceAll(ctx, m.Trackers(), m.InfoHash(), params)
	if err != nil {
		return err
	}
	for _, p := range peers {
		fmt.Fprintln(w, p)
	}
	return nil
}
