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

package simulated

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/rbac-suite/cluster"
)

func setup(t *testing.T, queries ...string) *Server {
	t.Helper()
	s := NewServer()
	for _, q := range queries {
		_, err := s.Exec(DefaultUser, q)
		require.NoError(t, err, q)
	}
	return s
}

func requireDenied(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, cluster.IsPrivilegeError(err), err.Error())
}

func TestSelectRequiresGrant(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE t (d DATE, a String) ENGINE = MergeTree() ORDER BY d",
		"INSERT INTO t VALUES ('2020-01-01', 'x'), ('2020-01-02', 'y')",
	)

	_, err := s.Exec("user0", "SELECT * FROM t")
	requireDenied(t, err)

	_, err = s.Exec(DefaultUser, "GRANT SELECT ON t TO user0")
	require.NoError(err)

	res, err := s.Exec("user0", "SELECT count() FROM t")
	require.NoError(err)
	require.Equal("2", res.Output())

	_, err = s.Exec(DefaultUser, "REVOKE SELECT ON t FROM user0")
	require.NoError(err)

	_, err = s.Exec("user0", "SELECT * FROM t")
	requireDenied(t, err)
}

func TestGrantThroughRole(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE ROLE role0",
		"CREATE TABLE t (d DATE) ENGINE = MergeTree() ORDER BY d",
		"GRANT INSERT ON t TO role0",
		"GRANT role0 TO user0",
	)

	_, err := s.Exec("user0", "INSERT INTO t VALUES ('2020-01-01')")
	require.NoError(err)

	_, err = s.Exec(DefaultUser, "REVOKE role0 FROM user0")
	require.NoError(err)

	_, err = s.Exec("user0", "INSERT INTO t VALUES ('2020-01-01')")
	requireDenied(t, err)
}

func TestParentPrivilegeCovers(t *testing.T) {
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE t (d DATE, x Int8) ENGINE = MergeTree() ORDER BY d",
	)

	for _, priv := range []string{"ALTER ADD COLUMN", "ALTER COLUMN", "ALTER TABLE", "ALTER", "ALL"} {
		t.Run(priv, func(t *testing.T) {
			require := require.New(t)
			_, err := s.Exec(DefaultUser, "GRANT "+priv+" ON t TO user0")
			require.NoError(err)

			_, err = s.Exec("user0", "ALTER TABLE t ADD COLUMN y String")
			require.NoError(err)

			_, err = s.Exec(DefaultUser, "REVOKE "+priv+" ON t FROM user0")
			require.NoError(err)

			_, err = s.Exec("user0", "ALTER TABLE t ADD COLUMN y String")
			requireDenied(t, err)
		})
	}
}

func TestPartialRevoke(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE t (d DATE, x Int8) ENGINE = MergeTree() ORDER BY d",
		"GRANT ALTER COLUMN ON t TO user0",
		"REVOKE ALTER DROP COLUMN ON t FROM user0",
	)

	_, err := s.Exec("user0", "ALTER TABLE t DROP COLUMN x")
	requireDenied(t, err)

	_, err = s.Exec("user0", "ALTER TABLE t MODIFY COLUMN x Int16")
	require.NoError(err)
}

func TestGrantOption(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE USER user1",
		"CREATE TABLE t (d DATE) ENGINE = MergeTree() ORDER BY d",
		"GRANT SELECT ON t TO user0",
	)

	_, err := s.Exec("user0", "GRANT SELECT ON t TO user1")
	requireDenied(t, err)
	require.Contains(err.Error(), "WITH GRANT OPTION")

	_, err = s.Exec(DefaultUser, "GRANT SELECT ON t TO user0 WITH GRANT OPTION")
	require.NoError(err)

	_, err = s.Exec("user0", "GRANT SELECT ON t TO user1")
	require.NoError(err)

	_, err = s.Exec("user1", "SELECT * FROM t")
	require.NoError(err)

	_, err = s.Exec(DefaultUser, "REVOKE GRANT OPTION FOR SELECT ON t FROM user0")
	require.NoError(err)

	_, err = s.Exec("user0", "SELECT * FROM t")
	require.NoError(err)

	_, err = s.Exec("user0", "GRANT SELECT ON t TO user1")
	requireDenied(t, err)
}

func TestRevokeGrantOptionForChild(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE USER user1",
		"CREATE TABLE t (d DATE, x Int8) ENGINE = MergeTree() ORDER BY d",
		"GRANT ALTER COLUMN ON t TO user0 WITH GRANT OPTION",
		"REVOKE GRANT OPTION FOR ALTER DROP COLUMN ON t FROM user0",
	)

	_, err := s.Exec("user0", "ALTER TABLE t DROP COLUMN x")
	require.NoError(err)

	_, err = s.Exec("user0", "GRANT ALTER DROP COLUMN ON t TO user1")
	requireDenied(t, err)

	_, err = s.Exec("user0", "GRANT ALTER MODIFY COLUMN ON t TO user1")
	require.NoError(err)
}

func TestPartialRevokeOfWildcardGrant(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE t (d DATE) ENGINE = MergeTree() ORDER BY d",
		"CREATE TABLE u (d DATE) ENGINE = MergeTree() ORDER BY d",
		"GRANT SELECT ON *.* TO user0",
		"REVOKE SELECT ON t FROM user0",
	)

	_, err := s.Exec("user0", "SELECT * FROM t")
	requireDenied(t, err)

	_, err = s.Exec("user0", "SELECT * FROM u")
	require.NoError(err)

	res, err := s.Exec("user0", "SHOW TABLES")
	require.NoError(err)
	require.False(res.Contains("t"))
	require.True(res.Contains("u"))

	_, err = s.Exec(DefaultUser, "GRANT SELECT ON t TO user0")
	require.NoError(err)

	_, err = s.Exec("user0", "SELECT * FROM t")
	require.NoError(err)
}

func TestRevokeWildcardRemovesNarrowerGrants(t *testing.T) {
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE t (d DATE) ENGINE = MergeTree() ORDER BY d",
		"GRANT SELECT ON t TO user0",
		"REVOKE SELECT ON *.* FROM user0",
	)

	_, err := s.Exec("user0", "SELECT * FROM t")
	requireDenied(t, err)
}

func TestShowTablesVisibility(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE a (d DATE) ENGINE = Memory",
		"CREATE TABLE b (d DATE) ENGINE = Memory",
	)

	res, err := s.Exec("user0", "SHOW TABLES")
	require.NoError(err)
	require.Empty(res.Rows)

	_, err = s.Exec("user0", "CHECK TABLE a")
	requireDenied(t, err)

	_, err = s.Exec(DefaultUser, "GRANT SHOW TABLES ON a TO user0")
	require.NoError(err)

	res, err = s.Exec("user0", "SHOW TABLES LIKE 'a%'")
	require.NoError(err)
	require.Equal([]string{"a"}, res.Column(0))

	res, err = s.Exec("user0", "EXISTS a")
	require.NoError(err)
	require.Equal("1", res.Output())

	res, err = s.Exec("user0", "CHECK TABLE a")
	require.NoError(err)
	require.Equal("1", res.Output())
}

func TestPublicTables(t *testing.T) {
	require := require.New(t)
	s := setup(t, "CREATE USER user0")

	for _, q := range []string{
		"SELECT * FROM system.one",
		"SELECT * FROM system.numbers LIMIT 1",
		"SELECT * FROM system.contributors LIMIT 1",
		"SELECT * FROM system.functions LIMIT 1",
	} {
		res, err := s.Exec("user0", q)
		require.NoError(err, q)
		require.Len(res.Rows, 1, q)
	}

	_, err := s.Exec("user0", "SELECT * FROM system.tables")
	requireDenied(t, err)
}

func TestDistributedTable(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE t0 (d DATE) ENGINE = MergeTree() ORDER BY d",
		"CREATE TABLE t1 (d DATE) ENGINE = Distributed(sharded_cluster, default, t0, rand())",
		"GRANT SELECT ON t1 TO user0",
	)

	_, err := s.Exec("user0", "SELECT * FROM t1")
	requireDenied(t, err)
	require.Contains(err.Error(), "default.t0")

	_, err = s.Exec(DefaultUser, "GRANT SELECT, INSERT ON t0 TO user0")
	require.NoError(err)
	_, err = s.Exec(DefaultUser, "GRANT INSERT ON t1 TO user0")
	require.NoError(err)

	_, err = s.Exec("user0", "INSERT INTO t1 VALUES ('2020-01-01')")
	require.NoError(err)

	res, err := s.Exec("user0", "SELECT count() FROM t1")
	require.NoError(err)
	require.Equal("1", res.Output())
}

func TestAlterFetchAndMove(t *testing.T) {
	require := require.New(t)
	s := setup(t,
		"CREATE USER user0",
		"CREATE TABLE src (d DATE) ENGINE = MergeTree() PARTITION BY d ORDER BY d",
		"CREATE TABLE dst (d DATE) ENGINE = MergeTree() PARTITION BY d ORDER BY d",
		"INSERT INTO src VALUES ('2020-01-01')",
		"GRANT ALTER FETCH PARTITION, ALTER MOVE PARTITION ON src TO user0",
	)

	_, err := s.Exec("user0", "ALTER TABLE src FETCH PARTITION 1 FROM '/clickhouse/tables/src'")
	require.Error(err)
	require.False(cluster.IsPrivilegeError(err))
	require.Equal(codeNotImplemented, err.(*Exception).Code)

	_, err = s.Exec("user0", "ALTER TABLE src MOVE PARTITION 1 TO TABLE dst")
	requireDenied(t, err)

	_, err = s.Exec(DefaultUser, "GRANT INSERT ON dst TO user0")
	require.NoError(err)

	_, err = s.Exec("user0", "ALTER TABLE src MOVE PARTITION 1 TO TABLE dst")
	require.NoError(err)

	res, err := s.Exec(DefaultUser, "SELECT count() FROM dst")
	require.NoError(err)
	require.Equal("1", res.Output())
}

func TestEntityErrors(t *testing.T) {
	require := require.New(t)
	s := setup(t, "CREATE USER user0")

	_, err := s.Exec(DefaultUser, "CREATE USER user0")
	require.Equal(codeAccessEntityExists, err.(*Exception).Code)

	_, err = s.Exec(DefaultUser, "CREATE USER IF NOT EXISTS user0")
	require.NoError(err)

	_, err = s.Exec(DefaultUser, "DROP ROLE missing")
	require.Equal(codeUnknownRole, err.(*Exception).Code)

	_, err = s.Exec(DefaultUser, "DROP ROLE IF EXISTS missing")
	require.NoError(err)

	_, err = s.Exec(DefaultUser, "DROP TABLE missing")
	require.Equal(codeUnknownTable, err.(*Exception).Code)

	_, err = s.Exec("nobody", "SELECT 1")
	require.Equal(codeAuthenticationFailed, err.(*Exception).Code)

	_, err = s.Exec(DefaultUser, "FROBNICATE")
	require.Equal(codeSyntaxError, err.(*Exception).Code)
}

func TestClusterNodesShareState(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	c := New("sharded_cluster")
	require.Equal(DefaultNodes, c.Nodes())

	n1, err := c.Node("clickhouse1")
	require.NoError(err)
	n2, err := c.Node("clickhouse2")
	require.NoError(err)

	_, err = n1.Query(ctx, "CREATE USER user0")
	require.NoError(err)
	_, err = n2.Query(ctx, "SELECT 1", cluster.AsUser("user0"))
	require.NoError(err)

	_, err = c.Node("clickhouse9")
	require.True(cluster.ErrNodeNotFound.Is(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = n1.Query(cancelled, "SELECT 1")
	require.Equal(context.Canceled, err)
}
