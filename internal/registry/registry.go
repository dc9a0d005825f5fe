package registry

import (
	"sync"

	"github.com/qbusio/qbus/internal/cos"
)

// DefaultQueueCapacity is the capacity of the queue CreateTopic and
// Produce auto-create when no explicit CreateQueue call preceded them.
const DefaultQueueCapacity = 1024

// Registry is the broker's two concurrent name->entity maps. sync.Map is
// the right tool here the same way aistore's core/lom.go reaches for it:
// reads vastly outnumber writes once a topic/queue population has
// stabilized, and LoadOrStore gives the get-or-create-is-atomic-per-key
// property the spec requires without a registry-wide lock.
type Registry struct {
	topics sync.Map // string -> *Topic
	queues sync.Map // string -> *Queue
}

func New() *Registry { return &Registry{} }

func (r *Registry) GetTopic(name string) (*Topic, bool) {
	v, ok := r.topics.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Topic), true
}

func (r *Registry) GetQueue(name string) (*Queue, bool) {
	v, ok := r.queues.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Queue), true
}

// CreateTopic is idempotent get-or-create: concurrent callers racing to
// create the same name are guaranteed to observe a single winning Topic
// object, via sync.Map.LoadOrStore's atomic compare-and-set semantics.
func (r *Registry) CreateTopic(name string) (topic *Topic, created bool) {
	v, loaded := r.topics.LoadOrStore(name, NewTopic(name))
	return v.(*Topic), !loaded
}

// CreateQueue is idempotent get-or-create. If the queue already exists,
// its original capacity wins — the requested capacity argument is
// silently ignored on a second call, per spec.md §4.3.
func (r *Registry) CreateQueue(name string, capacity int) (queue *Queue, created bool) {
	v, loaded := r.queues.LoadOrStore(name, NewQueue(name, capacity))
	return v.(*Queue), !loaded
}

// EnsureQueue returns the named queue, auto-creating it with
// DefaultQueueCapacity if absent. Used by Consume and by Produce's
// default-queue bootstrap.
func (r *Registry) EnsureQueue(name string) *Queue {
	q, _ := r.CreateQueue(name, DefaultQueueCapacity)
	return q
}

// RequireTopic returns an existing topic or a cos.ErrNotFound.
func (r *Registry) RequireTopic(name string) (*Topic, error) {
	t, ok := r.GetTopic(name)
	if !ok {
		return nil, cos.NewErrNotFound("topic %q", name)
	}
	return t, nil
}

// RequireQueue returns an existing queue or a cos.ErrNotFound.
func (r *Registry) RequireQueue(name string) (*Queue, error) {
	q, ok := r.GetQueue(name)
	if !ok {
		return nil, cos.NewErrNotFound("queue %q", name)
	}
	return q, nil
}
