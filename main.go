package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/llehouerou/nowscrobble/internal/app"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `nowscrobble - Last.fm scrobbling and Discord Rich Presence for your media player

Usage:
  nowscrobble [flags]

Flags:
  -config string
        Config file (default: $XDG_CONFIG_HOME/nowscrobble/config.toml, then ./config.toml)
  -history int
        Print the last N scrobbles and exit
`)
	}

	configPath := flag.String("config", "", "")
	history := flag.Int("history", 0, "")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.Run(ctx, app.Options{
		ConfigPath: *configPath,
		History:    *history,
	})
	if err != nil && !app.IsCanceled(err) {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
