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

package helper

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/rbac-suite/cluster/simulated"
	"github.com/dolthub/rbac-suite/flow"
)

func runWithCluster(t *testing.T, c *simulated.Cluster, fn flow.Func, args flow.Args) (*flow.Collector, error) {
	t.Helper()
	collector := flow.NewCollector()
	_, err := flow.Run(WithCluster(context.Background(), c), flow.Feature(flow.New("feature", fn)), args,
		flow.WithReporter(collector))
	return collector, err
}

func TestUnique(t *testing.T) {
	require := require.New(t)
	a, b := Unique("user"), Unique("user")
	require.NotEqual(a, b)
	require.True(strings.HasPrefix(a, "user_"))
	require.NotContains(a, "-")
}

func TestNodeSelection(t *testing.T) {
	c := simulated.New("sharded_cluster")

	_, err := runWithCluster(t, c, func(t *flow.T, args flow.Args) error {
		n, err := Node(t, args)
		if err != nil {
			return err
		}
		if err := flow.Assert(n.Name() == "clickhouse2", "got node %s", n.Name()); err != nil {
			return err
		}

		UseNode(t, "clickhouse3")
		return t.Scenario("nested", func(t *flow.T) error {
			n, err := Node(t, nil)
			if err != nil {
				return err
			}
			return flow.Assert(n.Name() == "clickhouse3", "got node %s", n.Name())
		})
	}, flow.Args{NodeArg: "clickhouse2"})
	require.NoError(t, err)

	_, err = flow.Run(context.Background(), flow.New("nocluster", func(t *flow.T, args flow.Args) error {
		_, err := Node(t, args)
		return err
	}), nil)
	require.True(t, ErrNoCluster.Is(err))
}

func TestObjectsDroppedOnCleanup(t *testing.T) {
	require := require.New(t)
	c := simulated.New("sharded_cluster")

	var user, role, table string
	_, err := runWithCluster(t, c, func(t *flow.T, args flow.Args) error {
		node, err := Node(t, args)
		if err != nil {
			return err
		}
		if user, err = WithUser(t, node); err != nil {
			return err
		}
		if role, err = WithRole(t, node); err != nil {
			return err
		}
		if table, err = WithTable(t, node, MergeTree); err != nil {
			return err
		}
		return Grant(t, node, "SELECT", table, user)
	}, nil)
	require.NoError(err)

	s := c.Server()
	_, err = s.Exec(simulated.DefaultUser, "DROP USER "+user)
	require.Error(err)
	_, err = s.Exec(simulated.DefaultUser, "DROP ROLE "+role)
	require.Error(err)
	res, err := s.Exec(simulated.DefaultUser, "EXISTS "+table)
	require.NoError(err)
	require.Equal("0", res.Output())
}

func TestExpect(t *testing.T) {
	require := require.New(t)
	s := simulated.NewServer()
	_, err := s.Exec(simulated.DefaultUser, "CREATE USER u")
	require.NoError(err)
	_, denied := s.Exec("u", "SELECT * FROM t")

	require.NoError(ExpectDenied(denied))
	require.True(flow.ErrAssertion.Is(ExpectDenied(nil)))
	require.NoError(ExpectAllowed(nil))
	require.True(flow.ErrAssertion.Is(ExpectAllowed(denied)))
	require.True(flow.ErrAssertion.Is(ExpectNotDenied(denied)))

	res, err := s.Exec(simulated.DefaultUser, "SELECT 1")
	require.NoError(ExpectOutput(res, err, "1"))
	require.True(flow.ErrAssertion.Is(ExpectOutput(res, err, "2")))
}

func TestCheckPrivilege(t *testing.T) {
	require := require.New(t)
	c := simulated.New("sharded_cluster")

	collector, err := runWithCluster(t, c, func(t *flow.T, args flow.Args) error {
		node, err := Node(t, args)
		if err != nil {
			return err
		}
		table, err := WithTable(t, node, MergeTree)
		if err != nil {
			return err
		}
		return CheckPrivilege(t, node, PrivilegeCheck{
			Privilege: "ALTER ADD COLUMN",
			On:        table,
			Query:     "ALTER TABLE " + table + " ADD COLUMN z String",
			Reset:     []string{"ALTER TABLE " + table + " DROP COLUMN IF EXISTS z"},
		})
	}, nil)
	require.NoError(err)

	var scenarios []string
	for _, r := range collector.Results() {
		if r.Kind == flow.KindScenario {
			scenarios = append(scenarios, r.Name)
		}
	}
	require.Equal([]string{
		"without privilege",
		"privilege granted directly",
		"privilege revoked",
		"privilege granted through a role",
		"role revoked",
		"parent privilege alter column",
		"parent privilege alter table",
		"parent privilege alter",
		"parent privilege all",
	}, scenarios)
}

func TestCheckPrivilegeDetectsMissingRequirement(t *testing.T) {
	require := require.New(t)
	c := simulated.New("sharded_cluster")

	collector, err := runWithCluster(t, c, func(t *flow.T, args flow.Args) error {
		node, err := Node(t, args)
		if err != nil {
			return err
		}
		src, err := WithTable(t, node, MergeTree)
		if err != nil {
			return err
		}
		dst, err := WithTable(t, node, MergeTree)
		if err != nil {
			return err
		}
		return CheckPrivilege(t, node, PrivilegeCheck{
			Privilege: "ALTER MOVE PARTITION",
			On:        src,
			Query:     "ALTER TABLE " + src + " MOVE PARTITION 1 TO TABLE " + dst,
		})
	}, nil)
	require.Error(err)
	require.True(flow.IsAssertion(err))

	summary := collector.Summary(flow.KindScenario)
	require.Equal(1, summary.Counts[flow.OK])
	require.True(summary.Counts[flow.Fail] > 0)
}
