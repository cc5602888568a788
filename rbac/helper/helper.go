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

// Package helper contains the building blocks shared by the RBAC scenarios:
// access to the cluster under test, creation of users, roles and tables
// that are dropped when the test ends, and privilege assertions.
package helper

import (
	"context"
	"fmt"
	"strings"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
)

// ErrNoCluster is returned when a scenario runs without a cluster in its
// context.
var ErrNoCluster = errors.NewKind("no cluster attached to test %s")

type contextKey int

const (
	clusterKey contextKey = iota
	nodeKey
)

// NodeArg is the scenario argument selecting the node queries are sent to.
const NodeArg = "node"

// WithCluster returns a context that makes c available to every test run
// with it.
func WithCluster(ctx context.Context, c cluster.Cluster) context.Context {
	return context.WithValue(ctx, clusterKey, c)
}

// Cluster returns the cluster the test runs against.
func Cluster(t *flow.T) (cluster.Cluster, error) {
	c, ok := t.Value(clusterKey).(cluster.Cluster)
	if !ok {
		return nil, ErrNoCluster.New(t.Path())
	}
	return c, nil
}

// Node returns the node a scenario sends its queries to: the one named by
// the NodeArg argument, the one selected with UseNode, or else the first
// node of the cluster.
func Node(t *flow.T, args flow.Args) (cluster.Node, error) {
	c, err := Cluster(t)
	if err != nil {
		return nil, err
	}

	if name, ok := args[NodeArg].(string); ok && name != "" {
		return c.Node(name)
	}
	if name, ok := t.Value(nodeKey).(string); ok {
		return c.Node(name)
	}

	nodes := c.Nodes()
	if len(nodes) == 0 {
		return nil, cluster.ErrNoNodes.New(c.Name())
	}
	return c.Node(nodes[0])
}

// UseNode makes the tests started after the call send queries to name.
func UseNode(t *flow.T, name string) {
	t.WithValue(nodeKey, name)
}

// Unique returns prefix followed by a random suffix, usable as the name of
// a user, role or table.
func Unique(prefix string) string {
	return prefix + "_" + strings.Replace(uuid.NewV4().String(), "-", "_", -1)
}

// Query runs query on node and logs it on the test logger.
func Query(t *flow.T, node cluster.Node, query string, opts ...cluster.QueryOption) (*cluster.Result, error) {
	o := cluster.NewQueryOptions(opts...)
	t.Log().WithFields(logrus.Fields{
		"node": node.Name(),
		"user": o.User,
	}).Debug(query)

	return node.Query(t.Context(), query, opts...)
}

// Exec runs statements on node as the administrative user, stopping at the
// first error.
func Exec(t *flow.T, node cluster.Node, statements ...string) error {
	for _, s := range statements {
		if _, err := Query(t, node, s); err != nil {
			return err
		}
	}
	return nil
}

// dropOnCleanup drops an object when t ends. The drop uses a fresh context
// so that it still runs on cancelled tests.
func dropOnCleanup(t *flow.T, node cluster.Node, statement string) {
	t.Cleanup(func() error {
		t.Log().WithField("node", node.Name()).Debug(statement)
		_, err := node.Query(context.Background(), statement)
		return err
	})
}

// WithUser creates a user with a unique name and drops it when t ends.
func WithUser(t *flow.T, node cluster.Node) (string, error) {
	name := Unique("user")
	if _, err := Query(t, node, "CREATE USER "+name); err != nil {
		return "", err
	}
	dropOnCleanup(t, node, "DROP USER IF EXISTS "+name)
	return name, nil
}

// WithRole creates a role with a unique name and drops it when t ends.
func WithRole(t *flow.T, node cluster.Node) (string, error) {
	name := Unique("role")
	if _, err := Query(t, node, "CREATE ROLE "+name); err != nil {
		return "", err
	}
	dropOnCleanup(t, node, "DROP ROLE IF EXISTS "+name)
	return name, nil
}

// MergeTree is the schema of the tables created by default.
const MergeTree = "(d DATE, a String, b UInt8, x String, y Int8) ENGINE = MergeTree() PARTITION BY y ORDER BY d"

// WithTable creates a table with a unique name and the given schema, and
// drops it when t ends. The schema is everything following the table name
// in the CREATE TABLE statement.
func WithTable(t *flow.T, node cluster.Node, schema string) (string, error) {
	name := Unique("table")
	if _, err := Query(t, node, fmt.Sprintf("CREATE TABLE %s %s", name, schema)); err != nil {
		return "", err
	}
	dropOnCleanup(t, node, "DROP TABLE IF EXISTS "+name)
	return name, nil
}

// WithClusterTable is WithTable with the table created and dropped on every
// node of the named cluster.
func WithClusterTable(t *flow.T, node cluster.Node, clusterName, schema string) (string, error) {
	name := Unique("table")
	if _, err := Query(t, node, fmt.Sprintf("CREATE TABLE %s ON CLUSTER %s %s", name, clusterName, schema)); err != nil {
		return "", err
	}
	dropOnCleanup(t, node, fmt.Sprintf("DROP TABLE IF EXISTS %s ON CLUSTER %s", name, clusterName))
	return name, nil
}

// Distributed returns the schema of a Distributed table over a local
// table of the default database.
func Distributed(clusterName, local string) string {
	return fmt.Sprintf("(d DATE, a String, b UInt8, x String, y Int8) ENGINE = Distributed(%s, default, %s, rand())", clusterName, local)
}

// Grant grants privileges on an object to a user or role.
func Grant(t *flow.T, node cluster.Node, privileges, on, to string) error {
	_, err := Query(t, node, fmt.Sprintf("GRANT %s ON %s TO %s", privileges, on, to))
	return err
}

// Revoke revokes privileges on an object from a user or role.
func Revoke(t *flow.T, node cluster.Node, privileges, on, from string) error {
	_, err := Query(t, node, fmt.Sprintf("REVOKE %s ON %s FROM %s", privileges, on, from))
	return err
}
