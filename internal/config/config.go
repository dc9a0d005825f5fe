// Package config parses the broker's startup environment, following the
// same "fail fast, loudly, before doing anything else" posture as
// aistore's earlystart.go.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/qbusio/qbus/internal/cluster"
)

const (
	EnvNodeID = "QBUS_NODE_ID"
	EnvNodes  = "QBUS_NODES"

	defaultNodeID = "node-a"
	defaultNodes  = `[{"id":"node-a","addr":"127.0.0.1:7001"},{"id":"node-b","addr":"127.0.0.1:7002"}]`
)

// ClusterEnv is the parsed environment used to build a cluster.View.
type ClusterEnv struct {
	SelfID string
	Nodes  []cluster.Node
}

// FromEnv reads QBUS_NODE_ID and QBUS_NODES, falling back to a two-node
// localhost example when neither is set at all (matching the defaults
// table in spec.md §6), but treating a malformed value as fatal.
func FromEnv() (*ClusterEnv, error) {
	nodeID, hasNodeID := os.LookupEnv(EnvNodeID)
	nodesJSON, hasNodes := os.LookupEnv(EnvNodes)

	if !hasNodeID && !hasNodes {
		nodeID, nodesJSON = defaultNodeID, defaultNodes
	} else {
		if nodeID == "" {
			return nil, errors.Errorf("%s must not be empty", EnvNodeID)
		}
		if nodesJSON == "" {
			return nil, errors.Errorf("%s must not be empty", EnvNodes)
		}
	}

	var nodes []cluster.Node
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(nodesJSON), &nodes); err != nil {
		return nil, errors.Wrapf(err, "%s: invalid JSON", EnvNodes)
	}
	if len(nodes) == 0 {
		return nil, errors.Errorf("%s: must list at least one node", EnvNodes)
	}

	found := false
	for _, n := range nodes {
		if n.ID == nodeID {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Errorf("%s=%q not found among %s", EnvNodeID, nodeID, EnvNodes)
	}

	return &ClusterEnv{SelfID: nodeID, Nodes: nodes}, nil
}

// View builds the immutable cluster.View implied by this environment.
func (c *ClusterEnv) View() *cluster.View {
	var self cluster.Node
	for _, n := range c.Nodes {
		if n.ID == c.SelfID {
			self = n
			break
		}
	}
	return cluster.NewView(self, c.Nodes)
}
