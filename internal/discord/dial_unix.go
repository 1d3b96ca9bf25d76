//go:build !windows

package discord

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Subdirectories used by sandboxed Discord installs.
var socketSubdirs = []string{"", "app/com.discordapp.Discord", "snap.discord"}

// socketPaths lists candidate sockets in probing order.
func socketPaths() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if d := os.Getenv(env); d != "" {
			dirs = append(dirs, d)
		}
	}
	dirs = append(dirs, "/tmp")

	var paths []string
	for _, dir := range dirs {
		for _, sub := range socketSubdirs {
			for i := range 10 {
				paths = append(paths, filepath.Join(dir, sub, fmt.Sprintf("discord-ipc-%d", i)))
			}
		}
	}
	return paths
}

func dialIPC(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for _, path := range socketPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrNotRunning
}
