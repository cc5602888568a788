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
	flow.Register(Path+".select", Attr, selectScenario, flow.WithDescription("SELECT privilege"))
}

func selectScenario(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	table, err := helper.WithTable(t, node, helper.MergeTree)
	if err != nil {
		return err
	}

	if err := helper.CheckPrivilege(t, node, helper.PrivilegeCheck{
		Privilege: privilege.Select,
		On:        table,
		Query:     "SELECT * FROM " + table,
	}); err != nil {
		return err
	}

	return t.Scenario("user reads the inserted data", func(t *flow.T) error {
		user, err := helper.WithUser(t, node)
		if err != nil {
			return err
		}

		if err := t.Given("a table with one row", func(t *flow.T) error {
			return helper.Exec(t, node,
				"ALTER TABLE "+table+" DELETE WHERE 1",
				fmt.Sprintf("INSERT INTO %s (d, a) VALUES ('2020-01-01', 'hello')", table),
			)
		}); err != nil {
			return err
		}
		if err := t.When("I grant SELECT on the table", func(t *flow.T) error {
			return helper.Grant(t, node, privilege.Select, table, user)
		}); err != nil {
			return err
		}
		return t.Then("the user sees the row", func(t *flow.T) error {
			res, err := helper.Query(t, node, "SELECT count() FROM "+table, cluster.AsUser(user))
			return helper.ExpectOutput(res, err, "1")
		})
	})
}
