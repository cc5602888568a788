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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	name string
	err  error
}

func (n *fakeNode) Name() string { return n.name }

func (n *fakeNode) Query(_ context.Context, query string, _ ...QueryOption) (*Result, error) {
	if n.err != nil {
		return nil, n.err
	}
	return &Result{Columns: []string{"q"}, Rows: [][]string{{query}}}, nil
}

type fakeCluster struct {
	nodes map[string]*fakeNode
}

func (c *fakeCluster) Name() string    { return "fake" }
func (c *fakeCluster) Nodes() []string { return []string{"n1"} }
func (c *fakeCluster) Close() error    { return nil }

func (c *fakeCluster) Node(name string) (Node, error) {
	n, ok := c.nodes[name]
	if !ok {
		return nil, ErrNodeNotFound.New(name)
	}
	return n, nil
}

func TestQueryOptions(t *testing.T) {
	require := require.New(t)

	o := NewQueryOptions(
		AsUser("user0"),
		WithSettings(map[string]interface{}{"max_threads": 4, "readonly": true}),
		WithSettings(map[string]interface{}{"allow_ddl": 0}),
	)
	require.Equal("user0", o.User)
	require.Equal("4", o.Settings["max_threads"])
	require.Equal("true", o.Settings["readonly"])
	require.Equal([]string{"allow_ddl", "max_threads", "readonly"}, o.SortedSettings())

	require.Empty(NewQueryOptions().User)
}

func TestResult(t *testing.T) {
	require := require.New(t)

	r := &Result{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "x"}, {"2", "y"}}}
	require.Equal("1\tx\n2\ty", r.Output())
	require.True(r.Contains("y"))
	require.False(r.Contains("z"))
	require.Equal([]string{"x", "y"}, r.Column(1))

	var empty *Result
	require.Equal("", empty.Output())
	require.False(empty.Contains("1"))
}

func TestIsPrivilegeError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"mysql code", &mysql.MySQLError{Number: AccessDeniedCode, Message: "denied"}, true},
		{"other mysql code", &mysql.MySQLError{Number: 60, Message: "Table default.t doesn't exist"}, false},
		{"message", errors.New("Code: 497. DB::Exception: user0: Not enough privileges."), true},
		{"wrapped kind", ErrQuery.Wrap(&mysql.MySQLError{Number: AccessDeniedCode}, "n1", "user0"), true},
		{"wrapped fmt", fmt.Errorf("running: %w", &mysql.MySQLError{Number: AccessDeniedCode}), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, IsPrivilegeError(tt.err))
		})
	}
}

func TestAuditLog(t *testing.T) {
	require := require.New(t)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	denied := &mysql.MySQLError{Number: AccessDeniedCode, Message: "Not enough privileges"}
	c := NewAudit(&fakeCluster{nodes: map[string]*fakeNode{
		"n1": {name: "n1"},
		"n2": {name: "n2", err: denied},
	}}, NewAuditLog(logger))

	n, err := c.Node("n1")
	require.NoError(err)
	_, err = n.Query(context.Background(), "SELECT 1", AsUser("user0"))
	require.NoError(err)

	e := hook.LastEntry()
	require.Equal(logrus.DebugLevel, e.Level)
	require.Equal(auditLogMessage, e.Message)
	require.Equal("audit", e.Data["system"])
	require.Equal("n1", e.Data["node"])
	require.Equal("user0", e.Data["user"])
	require.Equal("SELECT", e.Data["statement"])
	require.Equal(true, e.Data["success"])
	require.IsType(time.Duration(0), e.Data["duration"])

	n, err = c.Node("n2")
	require.NoError(err)
	_, err = n.Query(context.Background(), "INSERT INTO t VALUES (1)")
	require.Equal(denied, err)

	e = hook.LastEntry()
	require.Equal(logrus.InfoLevel, e.Level)
	require.Equal("INSERT", e.Data["statement"])
	require.Equal(false, e.Data["success"])
	require.Equal(true, e.Data["denied"])
	require.Len(hook.Entries, 2)

	_, err = c.Node("n3")
	require.True(ErrNodeNotFound.Is(err))
}

func TestSQLNodeDSN(t *testing.T) {
	require := require.New(t)

	n := NewSQLNode(NodeConfig{
		Name:     "clickhouse1",
		Address:  "localhost:9004",
		User:     "default",
		Password: "secret",
		Database: "default",
		Timeout:  time.Second,
	})
	defer n.Close()

	admin, err := mysql.ParseDSN(n.DSN(""))
	require.NoError(err)
	require.Equal("default", admin.User)
	require.Equal("secret", admin.Passwd)
	require.Equal("localhost:9004", admin.Addr)
	require.Equal(time.Second, admin.Timeout)

	user, err := mysql.ParseDSN(n.DSN("user0"))
	require.NoError(err)
	require.Equal("user0", user.User)
	require.Empty(user.Passwd)
	require.Equal("default", user.DBName)
}

func TestNewSQLCluster(t *testing.T) {
	require := require.New(t)

	_, err := NewSQLCluster("c", nil)
	require.True(ErrNoNodes.Is(err))

	_, err = NewSQLCluster("c", []NodeConfig{{Name: "a"}, {Name: "a"}})
	require.True(ErrDuplicateNode.Is(err))

	c, err := NewSQLCluster("c", []NodeConfig{{Name: "b"}, {Name: "a"}})
	require.NoError(err)
	defer c.Close()

	require.Equal("c", c.Name())
	require.Equal([]string{"b", "a"}, c.Nodes())
	n, err := c.Node("a")
	require.NoError(err)
	require.Equal("a", n.Name())
	_, err = c.Node("z")
	require.True(ErrNodeNotFound.Is(err))
}
