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

// Package cluster provides access to the servers the RBAC tests run against.
package cluster

import (
	"context"
	"sort"

	"github.com/spf13/cast"
)

// Node is a single server of the cluster under test.
type Node interface {
	// Name returns the name of the node in the cluster.
	Name() string
	// Query runs a statement on the node and returns its output.
	Query(ctx context.Context, query string, opts ...QueryOption) (*Result, error)
}

// Cluster is a set of nodes sharing users, roles and grants.
type Cluster interface {
	// Name returns the name of the cluster as used in ON CLUSTER clauses and
	// Distributed table engines.
	Name() string
	// Nodes returns the names of the nodes, in configuration order.
	Nodes() []string
	// Node returns the node with the given name.
	Node(name string) (Node, error)
	// Close releases every connection to the cluster.
	Close() error
}

// QueryOptions are the per query settings of Node.Query.
type QueryOptions struct {
	// User runs the query as the given user. Empty means the node's
	// administrative user.
	User string
	// Settings are applied to the session before the query.
	Settings map[string]string
}

// QueryOption configures a query.
type QueryOption func(*QueryOptions)

// AsUser runs the query as user.
func AsUser(user string) QueryOption {
	return func(o *QueryOptions) {
		o.User = user
	}
}

// WithSettings adds session settings to the query. Values are converted to
// their string representation.
func WithSettings(settings map[string]interface{}) QueryOption {
	return func(o *QueryOptions) {
		if o.Settings == nil {
			o.Settings = make(map[string]string, len(settings))
		}
		for k, v := range settings {
			o.Settings[k] = cast.ToString(v)
		}
	}
}

// NewQueryOptions applies opts to empty options.
func NewQueryOptions(opts ...QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SortedSettings returns the setting names sorted.
func (o QueryOptions) SortedSettings() []string {
	keys := make([]string, 0, len(o.Settings))
	for k := range o.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
