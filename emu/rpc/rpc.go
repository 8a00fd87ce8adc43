// Package rpc exposes the emulation loop controls over net/rpc, so that a
// running machine can be paused, reset or stopped from another process.
package rpc

import (
	"net"

	"sixtyfive/emu/log"
)

var modRPC = log.NewModule("rpc")

// UnusedPort returns a free TCP port on localhost.
func UnusedPort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
