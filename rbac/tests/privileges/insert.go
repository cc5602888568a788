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
	flow.Register(Path+".insert", Attr, insert, flow.WithDescription("INSERT privilege"))
}

func insert(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	table, err := helper.WithTable(t, node, helper.MergeTree)
	if err != nil {
		return err
	}

	if err := helper.CheckPrivilege(t, node, helper.PrivilegeCheck{
		Privilege: privilege.Insert,
		On:        table,
		Query:     fmt.Sprintf("INSERT INTO %s (d) VALUES ('2020-01-01')", table),
	}); err != nil {
		return err
	}

	return t.Scenario("privilege on another table", func(t *flow.T) error {
		other, err := helper.WithTable(t, node, helper.MergeTree)
		if err != nil {
			return err
		}
		user, err := helper.WithUser(t, node)
		if err != nil {
			return err
		}

		if err := t.When("I grant INSERT on another table", func(t *flow.T) error {
			return helper.Grant(t, node, privilege.Insert, other, user)
		}); err != nil {
			return err
		}
		return t.Then("I can not insert into the table", func(t *flow.T) error {
			_, err := helper.Query(t, node, fmt.Sprintf("INSERT INTO %s (d) VALUES ('2020-01-01')", table), cluster.AsUser(user))
			return helper.ExpectDenied(err)
		})
	})
}
