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

package privileges

import (
	"fmt"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

func init() {
	flow.Register(Path+".distributed_table", Attr, distributedTable, flow.WithDescription("privileges on Distributed tables"))
}

func distributedTable(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	c, err := helper.Cluster(t)
	if err != nil {
		return err
	}

	local, err := helper.WithClusterTable(t, node, c.Name(), helper.MergeTree)
	if err != nil {
		return err
	}
	dist, err := helper.WithTable(t, node, helper.Distributed(c.Name(), local))
	if err != nil {
		return err
	}

	if err := helper.CheckPrivileges(t, node,
		helper.PrivilegeCheck{
			Privilege:   privilege.Select,
			On:          dist,
			Query:       "SELECT * FROM " + dist,
			ExtraGrants: []helper.ExtraGrant{{Privilege: privilege.Select, On: local}},
		},
		helper.PrivilegeCheck{
			Privilege:   privilege.Insert,
			On:          dist,
			Query:       fmt.Sprintf("INSERT INTO %s (d) VALUES ('2020-01-01')", dist),
			ExtraGrants: []helper.ExtraGrant{{Privilege: privilege.Insert, On: local}},
		},
	); err != nil {
		return err
	}

	for _, priv := range []string{privilege.Select, privilege.Insert} {
		priv := priv
		query := "SELECT * FROM " + dist
		if priv == privilege.Insert {
			query = fmt.Sprintf("INSERT INTO %s (d) VALUES ('2020-01-01')", dist)
		}

		if err := t.Scenario(fmt.Sprintf("%s without privilege on the local table", priv), func(t *flow.T) error {
			user, err := helper.WithUser(t, node)
			if err != nil {
				return err
			}
			if err := t.When("I grant "+priv+" on the distributed table only", func(t *flow.T) error {
				return helper.Grant(t, node, priv, dist, user)
			}); err != nil {
				return err
			}
			return t.Then("I can not use the distributed table", func(t *flow.T) error {
				_, err := helper.Query(t, node, query, cluster.AsUser(user))
				return helper.ExpectDenied(err)
			})
		}); err != nil {
			return err
		}
	}
	return nil
}
