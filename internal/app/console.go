package app

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ReadCommands delivers each non-empty trimmed line of r until r ends or
// ctx is done. The channel is closed when reading stops.
func ReadCommands(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
