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

package cluster

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// NodeConfig holds the connection settings of a node.
type NodeConfig struct {
	// Name of the node in the cluster.
	Name string
	// Address of the MySQL compatible endpoint of the node, host:port.
	Address string
	// User and Password of the administrative account.
	User     string
	Password string
	// Database selected on connection.
	Database string
	// Timeout for establishing connections.
	Timeout time.Duration
}

// SQLNode is a Node reached through database/sql and the MySQL protocol.
// Connections are pooled per user.
type SQLNode struct {
	cfg NodeConfig

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

var _ Node = (*SQLNode)(nil)

// NewSQLNode creates a node. No connection is made until the first query.
func NewSQLNode(cfg NodeConfig) *SQLNode {
	return &SQLNode{cfg: cfg, dbs: make(map[string]*sql.DB)}
}

// Name implements the Node interface.
func (n *SQLNode) Name() string { return n.cfg.Name }

// DSN returns the data source name used to connect as user. Users other
// than the administrative one connect without password.
func (n *SQLNode) DSN(user string) string {
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = n.cfg.Address
	c.DBName = n.cfg.Database
	c.Timeout = n.cfg.Timeout
	c.User = n.cfg.User
	c.Passwd = n.cfg.Password
	if user != "" && user != n.cfg.User {
		c.User = user
		c.Passwd = ""
	}
	return c.FormatDSN()
}

func (n *SQLNode) db(user string) (*sql.DB, error) {
	if user == "" {
		user = n.cfg.User
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if db, ok := n.dbs[user]; ok {
		return db, nil
	}

	db, err := sql.Open("mysql", n.DSN(user))
	if err != nil {
		return nil, err
	}
	n.dbs[user] = db
	return db, nil
}

// Query implements the Node interface. Settings are applied with SET
// statements on the connection used for the query.
func (n *SQLNode) Query(ctx context.Context, query string, opts ...QueryOption) (*Result, error) {
	o := NewQueryOptions(opts...)

	db, err := n.db(o.User)
	if err != nil {
		return nil, ErrQuery.Wrap(err, n.cfg.Name, o.User)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, ErrQuery.Wrap(err, n.cfg.Name, o.User)
	}
	defer conn.Close()

	for _, k := range o.SortedSettings() {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET %s = %s", k, o.Settings[k])); err != nil {
			return nil, ErrQuery.Wrap(err, n.cfg.Name, o.User)
		}
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, ErrQuery.Wrap(err, n.cfg.Name, o.User)
	}
	defer rows.Close()

	res, err := scanRows(rows)
	if err != nil {
		return nil, ErrQuery.Wrap(err, n.cfg.Name, o.User)
	}
	return res, nil
}

func scanRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols}
	values := make([]sql.NullString, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = `\N`
			}
		}
		res.Rows = append(res.Rows, row)
	}

	return res, rows.Err()
}

// Ping checks the administrative connection to the node.
func (n *SQLNode) Ping(ctx context.Context) error {
	db, err := n.db("")
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes every connection pool of the node.
func (n *SQLNode) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var result *multierror.Error
	for user, db := range n.dbs {
		if err := db.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		delete(n.dbs, user)
	}
	return result.ErrorOrNil()
}

// SQLCluster is a Cluster of SQLNodes.
type SQLCluster struct {
	name  string
	order []string
	nodes map[string]*SQLNode
}

var _ Cluster = (*SQLCluster)(nil)

// NewSQLCluster creates a cluster with a node for each configuration.
func NewSQLCluster(name string, nodes []NodeConfig) (*SQLCluster, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes.New(name)
	}

	c := &SQLCluster{name: name, nodes: make(map[string]*SQLNode, len(nodes))}
	for _, cfg := range nodes {
		if _, ok := c.nodes[cfg.Name]; ok {
			return nil, ErrDuplicateNode.New(cfg.Name)
		}
		c.nodes[cfg.Name] = NewSQLNode(cfg)
		c.order = append(c.order, cfg.Name)
	}
	return c, nil
}

// Name implements the Cluster interface.
func (c *SQLCluster) Name() string { return c.name }

// Nodes implements the Cluster interface.
func (c *SQLCluster) Nodes() []string {
	return append([]string(nil), c.order...)
}

// Node implements the Cluster interface.
func (c *SQLCluster) Node(name string) (Node, error) {
	n, ok := c.nodes[name]
	if !ok {
		return nil, ErrNodeNotFound.New(name)
	}
	return n, nil
}

// Ping checks every node concurrently.
func (c *SQLCluster) Ping(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, name := range c.order {
		n := c.nodes[name]
		eg.Go(func() error {
			if err := n.Ping(ctx); err != nil {
				return fmt.Errorf("%s: %w", n.Name(), err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Close implements the Cluster interface.
func (c *SQLCluster) Close() error {
	var result *multierror.Error
	for _, name := range c.order {
		if err := c.nodes[name].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
