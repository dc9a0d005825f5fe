package registry

import "sync"

// Topic is a named fan-out target: a set of bound queue names. It holds
// no messages of its own. bound is guarded by a plain mutex rather than
// sync.Map because Produce's fan-out needs a stable snapshot slice to
// range over (a sync.Map.Range callback cannot safely call back into
// Registry without risking deadlock against a concurrent Bind holding the
// same shard) — see handleProduce in internal/handlers.
type Topic struct {
	name string

	mu    sync.Mutex
	bound map[string]struct{}
}

func NewTopic(name string) *Topic {
	return &Topic{name: name, bound: make(map[string]struct{})}
}

func (t *Topic) Name() string { return t.name }

// Bind adds queueName to the bound set; idempotent.
func (t *Topic) Bind(queueName string) {
	t.mu.Lock()
	t.bound[queueName] = struct{}{}
	t.mu.Unlock()
}

// Unbind removes queueName from the bound set; idempotent.
func (t *Topic) Unbind(queueName string) {
	t.mu.Lock()
	delete(t.bound, queueName)
	t.mu.Unlock()
}

// BoundQueues returns a snapshot of the currently bound queue names. The
// fan-out loop in Produce tolerates a binding added or removed mid-pass,
// so a snapshot taken under a short-lived lock is sufficient; it need not
// be a consistent view across the whole of a concurrent Bind/Unbind.
func (t *Topic) BoundQueues() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.bound))
	for name := range t.bound {
		out = append(out, name)
	}
	return out
}
