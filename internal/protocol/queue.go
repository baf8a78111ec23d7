package protocol

import (
	"slices"
	"sort"
)

// Queue holds received frames ordered by Number. Frames with equal numbers
// keep their arrival order and duplicates are kept. It is owned by a single
// goroutine and needs no locking.
type Queue struct {
	frames []Frame
}

// Push inserts f after every queued frame whose number is not greater.
func (q *Queue) Push(f Frame) {
	i := sort.Search(len(q.frames), func(i int) bool {
		return q.frames[i].Number > f.Number
	})
	q.frames = slices.Insert(q.frames, i, f)
}

func (q *Queue) Len() int { return len(q.frames) }

// Pop returns every queued frame in order and empties the queue.
func (q *Queue) Pop() []Frame {
	frames := q.frames
	q.frames = nil
	return frames
}
