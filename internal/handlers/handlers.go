// Package handlers implements one function per opcode: each consumes a
// request body, consults the cluster view to decide serve-locally vs.
// redirect, mutates the registry, and assembles a reply body that always
// begins with a wire.Status. None of them ever fail the connection —
// every parse or leadership failure is encoded as a status in the reply,
// per spec.md §4.4; only the server's frame decoder can fail a connection.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package handlers

import (
	"context"
	"time"

	"github.com/qbusio/qbus/internal/cluster"
	"github.com/qbusio/qbus/internal/metrics"
	"github.com/qbusio/qbus/internal/nlog"
	"github.com/qbusio/qbus/internal/registry"
	"github.com/qbusio/qbus/internal/wire"
)

// Handle dispatches a decoded request body to the handler for op and
// returns the assembled reply body. It is the single switch the
// connection loop (internal/server) calls per request — a tagged-enum
// dispatch rather than per-opcode interface types, the same shape
// aistore's transport package uses for its own Opcode-keyed handling.
func Handle(ctx context.Context, op wire.Opcode, body []byte, view *cluster.View, reg *registry.Registry) []byte {
	metrics.RequestsTotal(op.String()).Inc()
	switch op {
	case wire.Metadata:
		return handleMetadata(body, view)
	case wire.CreateTopic:
		return handleCreateTopic(body, view, reg)
	case wire.CreateQueue:
		return handleCreateQueue(body, reg)
	case wire.BindQueue:
		return handleBindQueue(body, view, reg)
	case wire.Produce:
		return handleProduce(body, view, reg)
	case wire.Consume:
		return handleConsume(ctx, body, reg)
	case wire.Read:
		return handleRead()
	default:
		// unreachable: internal/wire.DecodeHeader already rejected unknown
		// opcodes as fatal before a handler could be looked up.
		return statusOnly(wire.BadRequest)
	}
}

func statusOnly(s wire.Status) []byte {
	w := wire.NewWriter(make([]byte, 0, 2))
	w.PutStatus(s)
	return w.Bytes()
}

func redirect(leader cluster.Node) []byte {
	metrics.RedirectsTotal.Inc()
	w := wire.NewWriter(make([]byte, 0, 64))
	w.PutStatus(wire.Redirect)
	_ = w.PutStr(leader.Addr)
	return w.Bytes()
}

// Metadata: str topic -> Ok | u32 count=1 | u32 0 | str leader_addr.
// Never redirects; any node may answer — it is the client's bootstrap
// for locating a topic's owner.
func handleMetadata(body []byte, view *cluster.View) []byte {
	r := wire.NewReader(body)
	topic, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	leader := view.LeaderOf(topic)

	w := wire.NewWriter(make([]byte, 0, 16+len(leader.Addr)))
	w.PutStatus(wire.Ok)
	w.PutU32(1)
	w.PutU32(0)
	_ = w.PutStr(leader.Addr)
	return w.Bytes()
}

// CreateTopic: str topic. Redirects if not leader; ResourceExists if
// already present; otherwise creates the topic plus a default queue of
// the same name (capacity 1024) bound to it.
func handleCreateTopic(body []byte, view *cluster.View, reg *registry.Registry) []byte {
	r := wire.NewReader(body)
	topic, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	if !view.IsLeader(topic) {
		return redirect(view.LeaderOf(topic))
	}
	t, created := reg.CreateTopic(topic)
	if !created {
		return statusOnly(wire.ResourceExists)
	}
	q := reg.EnsureQueue(topic)
	t.Bind(q.Name())
	return statusOnly(wire.Ok)
}

// CreateQueue: str queue | u32 capacity. Node-local: queues are never
// redirected, they aren't globally routed.
func handleCreateQueue(body []byte, reg *registry.Registry) []byte {
	r := wire.NewReader(body)
	name, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	capacity, ok := r.GetU32()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	if capacity == 0 {
		return statusOnly(wire.BadRequest)
	}
	if _, created := reg.CreateQueue(name, int(capacity)); !created {
		return statusOnly(wire.ResourceExists)
	}
	return statusOnly(wire.Ok)
}

// BindQueue: str topic | str queue. Redirects if not leader over topic;
// NotFound if either side is unknown locally; otherwise idempotently
// binds.
func handleBindQueue(body []byte, view *cluster.View, reg *registry.Registry) []byte {
	r := wire.NewReader(body)
	topicName, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	queueName, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	if !view.IsLeader(topicName) {
		return redirect(view.LeaderOf(topicName))
	}
	topic, err := reg.RequireTopic(topicName)
	if err != nil {
		return statusOnly(wire.NotFound)
	}
	if _, err := reg.RequireQueue(queueName); err != nil {
		return statusOnly(wire.NotFound)
	}
	topic.Bind(queueName)
	return statusOnly(wire.Ok)
}

// Produce: str topic | bytes payload. Redirects if not leader; otherwise
// auto-creates the topic (and its default queue) and fans the payload out
// to every currently bound queue that exists locally, fire-and-forget: a
// full or missing queue is silently skipped, and the call always replies
// Ok regardless of whether any queue accepted the message.
func handleProduce(body []byte, view *cluster.View, reg *registry.Registry) []byte {
	r := wire.NewReader(body)
	topicName, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	payload, ok := r.GetBytes()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	if !view.IsLeader(topicName) {
		return redirect(view.LeaderOf(topicName))
	}

	topic, _ := reg.CreateTopic(topicName)
	defaultQueue := reg.EnsureQueue(topicName)
	topic.Bind(defaultQueue.Name())

	metrics.ProduceTotal.Inc()
	for _, qname := range topic.BoundQueues() {
		q, ok := reg.GetQueue(qname)
		if !ok {
			continue // bound name doesn't (yet, or anymore) exist locally
		}
		if !q.Push(cloneBytes(payload)) {
			metrics.QueueFullDropsTotal.Inc()
			nlog.Warningf("produce: queue %q full, dropping message", qname)
		}
	}
	return statusOnly(wire.Ok)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Consume: str queue | u32 timeout_ms. Queue-name routing is node-local:
// there is no redirect, the queue is auto-created with capacity 1024 if
// absent. timeout_ms == 0 is a non-blocking pop; timeout_ms > 0 blocks up
// to that many milliseconds.
func handleConsume(ctx context.Context, body []byte, reg *registry.Registry) []byte {
	r := wire.NewReader(body)
	queueName, ok := r.GetStr()
	if !ok {
		return statusOnly(wire.BadRequest)
	}
	timeoutMs, ok := r.GetU32()
	if !ok {
		return statusOnly(wire.BadRequest)
	}

	q := reg.EnsureQueue(queueName)

	var (
		val []byte
		got bool
	)
	if timeoutMs == 0 {
		val, got = q.Pop()
	} else {
		cctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		val, got = q.PopWait(cctx)
		cancel()
	}
	if !got {
		metrics.ConsumeEmptyTotal.Inc()
		return statusOnly(wire.Empty)
	}

	w := wire.NewWriter(make([]byte, 0, 6+len(val)))
	w.PutStatus(wire.Ok)
	w.PutBytes(val)
	return w.Bytes()
}

// Read is numerically reserved from an earlier protocol revision; the
// historical debug-dump path behind it is removed, so every call replies
// BadRequest.
func handleRead() []byte {
	return statusOnly(wire.BadRequest)
}
