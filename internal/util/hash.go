// Package util provides shared utility functions.
package util

import (
	"fmt"
	"hash/fnv"
	"net"
)

// ConnTag computes a short stable tag from a connection's endpoints
// (local address, remote address). It only labels log lines and metrics;
// it is not unique across process restarts and need not be reversible.
func ConnTag(local, remote net.Addr) string {
	h := fnv.New32a()
	if local != nil {
		h.Write([]byte(local.String()))
	}
	if remote != nil {
		h.Write([]byte(remote.String()))
	}
	return fmt.Sprintf("%08x", h.Sum32())
}
