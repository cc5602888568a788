// Copyright 2022 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package simulated implements an in-memory cluster that emulates the access
// control of the server under test. It understands the subset of SQL the
// RBAC tests use.
package simulated

import (
	"context"

	"github.com/dolthub/rbac-suite/cluster"
)

// DefaultNodes are the node names of a cluster created without names.
var DefaultNodes = []string{"clickhouse1", "clickhouse2", "clickhouse3"}

// Cluster is a cluster.Cluster whose nodes share a single Server.
type Cluster struct {
	name   string
	nodes  []string
	server *Server
}

var _ cluster.Cluster = (*Cluster)(nil)

// New creates a simulated cluster with the given node names, or
// DefaultNodes if none are given.
func New(name string, nodes ...string) *Cluster {
	if len(nodes) == 0 {
		nodes = DefaultNodes
	}
	return &Cluster{
		name:   name,
		nodes:  append([]string(nil), nodes...),
		server: NewServer(),
	}
}

// Server returns the state shared by the nodes.
func (c *Cluster) Server() *Server { return c.server }

// Name implements the cluster.Cluster interface.
func (c *Cluster) Name() string { return c.name }

// Nodes implements the cluster.Cluster interface.
func (c *Cluster) Nodes() []string {
	return append([]string(nil), c.nodes...)
}

// Node implements the cluster.Cluster interface.
func (c *Cluster) Node(name string) (cluster.Node, error) {
	for _, n := range c.nodes {
		if n == name {
			return &Node{name: name, server: c.server}, nil
		}
	}
	return nil, cluster.ErrNodeNotFound.New(name)
}

// Close implements the cluster.Cluster interface.
func (c *Cluster) Close() error { return nil }

// Node is a node of a simulated cluster.
type Node struct {
	name   string
	server *Server
}

var _ cluster.Node = (*Node)(nil)

// Name implements the cluster.Node interface.
func (n *Node) Name() string { return n.name }

// Query implements the cluster.Node interface. Settings are accepted and
// ignored.
func (n *Node) Query(ctx context.Context, query string, opts ...cluster.QueryOption) (*cluster.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user := cluster.NewQueryOptions(opts...).User
	if user == "" {
		user = DefaultUser
	}
	return n.server.Exec(user, query)
}
