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
	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

func init() {
	flow.Register(Path+".show_tables", Attr, showTables, flow.WithDescription("SHOW TABLES privilege"))
}

func showTables(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	table, err := helper.WithTable(t, node, helper.MergeTree)
	if err != nil {
		return err
	}

	if err := t.Scenario("table listed", func(t *flow.T) error {
		user, err := helper.WithUser(t, node)
		if err != nil {
			return err
		}

		if err := t.Then("the table is not listed without privilege", func(t *flow.T) error {
			res, err := helper.Query(t, node, "SHOW TABLES", cluster.AsUser(user))
			if err := helper.ExpectAllowed(err); err != nil {
				return err
			}
			return flow.Assert(!res.Contains(table), "table %s listed without privilege", table)
		}); err != nil {
			return err
		}
		if err := t.When("I grant SHOW TABLES", func(t *flow.T) error {
			return helper.Grant(t, node, privilege.ShowTables, table, user)
		}); err != nil {
			return err
		}
		return t.Then("the table is listed", func(t *flow.T) error {
			res, err := helper.Query(t, node, "SHOW TABLES", cluster.AsUser(user))
			if err := helper.ExpectAllowed(err); err != nil {
				return err
			}
			return flow.Assert(res.Contains(table), "table %s not listed", table)
		})
	}); err != nil {
		return err
	}

	return helper.CheckPrivileges(t, node,
		helper.PrivilegeCheck{
			Name:      "exists",
			Privilege: privilege.ShowTables,
			On:        table,
			Query:     "EXISTS " + table,
		},
		helper.PrivilegeCheck{
			Name:      "check table",
			Privilege: privilege.ShowTables,
			On:        table,
			Query:     "CHECK TABLE " + table,
		},
	)
}
