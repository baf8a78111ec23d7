package message

import (
	"fmt"
	"strings"
)

// Table maps message keys to handlers of type H. It is filled once at
// construction and read-only afterwards.
type Table[H any] struct {
	handlers map[Key]H
}

func NewTable[H any]() *Table[H] {
	return &Table[H]{handlers: make(map[Key]H)}
}

// Handle registers h for k, replacing any previous handler.
func (t *Table[H]) Handle(k Key, h H) *Table[H] {
	t.handlers[k] = h
	return t
}

// Lookup returns the handler for k.
func (t *Table[H]) Lookup(k Key) (H, bool) {
	h, ok := t.handlers[k]
	return h, ok
}

// Require reports every key in keys that has no handler.
func (t *Table[H]) Require(keys ...Key) error {
	var missing []string
	for _, k := range keys {
		if _, ok := t.handlers[k]; !ok {
			missing = append(missing, k.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no handler for %s", ErrUnknownPair, strings.Join(missing, ", "))
	}
	return nil
}

func (t *Table[H]) Len() int { return len(t.handlers) }
