package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, args, err := parseConfig(args, stderr, os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.logLevel})))

	if len(args) < 2 {
		slog.Error("not enough arguments")
		fmt.Fprintln(stderr, "usage: btmeta [flags] decode <bencoded-string> | info <file> | peers <file>")
		return 2
	}

	command, arg := args[0], args[1]
	switch command {
	case "decode":
		err = decodeCommand(stdout, arg)
	case "info":
		err = infoCommand(stdout, arg)
	case "peers":
		err = peersCommand(ctx, stdout, cfg, arg)
	default:
		fmt.Fprintln(stderr, "Unknown command: "+command)
		return 1
	}

	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
