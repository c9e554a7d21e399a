package console

import (
	"sync"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
)

// defaultBacklog bounds how many patch batches a session keeps for streams
// that reconnect or attach late.
const defaultBacklog = 256

// batch is the patch set one loop task produced. Seq numbers are dense and
// start at 1.
type batch struct {
	seq     uint64
	patches []dom.Patch
}

// patchLog fans one session's patch batches out to every attached stream.
// Readers resume from the last sequence they saw; a reader that fell behind
// the backlog has to reload the page.
type patchLog struct {
	mu      sync.Mutex
	seq     uint64
	limit   int
	backlog []batch
	waiters map[chan struct{}]struct{}
	closed  chan struct{}
	once    sync.Once
}

func newPatchLog(limit int) *patchLog {
	if limit <= 0 {
		limit = defaultBacklog
	}
	return &patchLog{
		limit:   limit,
		waiters: map[chan struct{}]struct{}{},
		closed:  make(chan struct{}),
	}
}

// publish appends a batch, wakes every waiter and returns the newest
// sequence. An empty batch is not recorded.
func (l *patchLog) publish(patches []dom.Patch) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(patches) == 0 {
		return l.seq
	}
	l.seq++
	l.backlog = append(l.backlog, batch{seq: l.seq, patches: patches})
	if over := len(l.backlog) - l.limit; over > 0 {
		clear(l.backlog[:over])
		l.backlog = l.backlog[over:]
	}
	for ch := range l.waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return l.seq
}

// Seq returns the sequence of the newest batch.
func (l *patchLog) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// since returns the batches after seq. ok is false when some of them were
// already trimmed, or when seq is ahead of the log.
func (l *patchLog) since(seq uint64) ([]batch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq == l.seq {
		return nil, true
	}
	if seq > l.seq || len(l.backlog) == 0 || l.backlog[0].seq > seq+1 {
		return nil, false
	}
	start := int(seq + 1 - l.backlog[0].seq)
	out := make([]batch, len(l.backlog)-start)
	copy(out, l.backlog[start:])
	return out, true
}

// subscribe returns a channel signalled after each publish and a function
// that detaches it.
func (l *patchLog) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.waiters[ch] = struct{}{}
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		delete(l.waiters, ch)
		l.mu.Unlock()
	}
}

// close ends every attached stream.
func (l *patchLog) close() {
	l.once.Do(func() { close(l.closed) })
}

// Done is closed once the session is gone.
func (l *patchLog) Done() <-chan struct{} {
	return l.closed
}
