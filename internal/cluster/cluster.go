// Package cluster holds the broker's static membership view and the
// rendezvous (highest-random-weight) hash used to pick a topic's
// authoritative node, grounded on aistore's fs.Hrw (a variant of the same
// algorithm used to pick a mountpath for a stored object): combine a
// candidate's precomputed digest with a per-key digest through an
// avalanche step, and keep the maximum.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cluster

import (
	"github.com/OneOfOne/xxhash"

	"github.com/qbusio/qbus/internal/xoshiro256"
)

// Node is one member of the static cluster, addressable over TCP.
type Node struct {
	ID   string
	Addr string // "host:port"
}

type member struct {
	Node
	digest uint64 // xxhash of ID, precomputed once at View construction
}

// View is an immutable snapshot of cluster membership: who "self" is and
// the full ordered member list, including self. Created once at startup
// from environment configuration and never mutated afterward — exactly
// the lifecycle of aistore's own cluster maps, which are swapped wholesale
// on update rather than mutated in place.
type View struct {
	self    Node
	members []member
}

// NewView builds an immutable View. self is stored as given; NewView does
// not check that members contains it (IsLeader compares by ID only).
// Node-id digests are precomputed
// here once, not on every leader_of call, mirroring fs.Hrw's precomputed
// Mountpath.PathDigest.
func NewView(self Node, members []Node) *View {
	v := &View{self: self, members: make([]member, 0, len(members))}
	for _, n := range members {
		v.members = append(v.members, member{Node: n, digest: xxhash.ChecksumString64(n.ID)})
	}
	return v
}

func (v *View) Self() Node { return v.self }

// Members returns the full, ordered membership (including self).
func (v *View) Members() []Node {
	out := make([]Node, len(v.members))
	for i, m := range v.members {
		out[i] = m.Node
	}
	return out
}

// LeaderOf returns the node maximizing xoshiro256.Hash(memberDigest ^
// xxhash(topic)) over the membership — a rendezvous hash of the same shape
// as maximizing hash(concat(n.id, ":", topic)), though not that exact
// function, so the chosen leader can differ from one computed over the
// concatenated string. Ties, astronomically
// unlikely with a 64-bit avalanche hash, are broken by first-occurrence
// in the member list, exactly as fs.Hrw breaks ties by iteration order.
func (v *View) LeaderOf(topic string) Node {
	keyDigest := xxhash.ChecksumString64(topic)

	var (
		best      Node
		bestScore uint64
		have      bool
	)
	for _, m := range v.members {
		score := xoshiro256.Hash(m.digest ^ keyDigest)
		if !have || score > bestScore {
			best, bestScore, have = m.Node, score, true
		}
	}
	return best
}

// IsLeader reports whether self is authoritative for topic.
func (v *View) IsLeader(topic string) bool {
	return v.LeaderOf(topic).ID == v.self.ID
}
