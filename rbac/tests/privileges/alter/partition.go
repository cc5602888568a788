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

package alter

import (
	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

func init() {
	register("alter_freeze", "ALTER FREEZE PARTITION privilege", freezeChecks)
	register("alter_fetch", "ALTER FETCH PARTITION privilege", fetchChecks)
	flow.Register(path+".alter_move", attr, move, flow.WithDescription("ALTER MOVE PARTITION privilege"))
}

func freezeChecks(table string) []helper.PrivilegeCheck {
	return []helper.PrivilegeCheck{{
		Privilege: privilege.AlterFreeze,
		On:        table,
		Query:     alterf(table, "FREEZE"),
	}}
}

// The tables are not replicated, so an allowed FETCH still fails once the
// access check passed.
func fetchChecks(table string) []helper.PrivilegeCheck {
	return []helper.PrivilegeCheck{{
		Privilege:          privilege.AlterFetch,
		On:                 table,
		Query:              alterf(table, "FETCH PARTITION 1 FROM '/clickhouse/tables/01/%s'", table),
		PrivilegeErrorOnly: true,
	}}
}

func move(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	src, err := helper.WithTable(t, node, helper.MergeTree)
	if err != nil {
		return err
	}
	dst, err := helper.WithTable(t, node, helper.MergeTree)
	if err != nil {
		return err
	}
	query := alterf(src, "MOVE PARTITION 1 TO TABLE %s", dst)

	if err := helper.CheckPrivilege(t, node, helper.PrivilegeCheck{
		Privilege:   privilege.AlterMove,
		On:          src,
		Query:       query,
		ExtraGrants: []helper.ExtraGrant{{Privilege: privilege.Insert, On: dst}},
	}); err != nil {
		return err
	}

	return t.Scenario("without INSERT on the destination", func(t *flow.T) error {
		user, err := helper.WithUser(t, node)
		if err != nil {
			return err
		}
		if err := t.When("I grant ALTER MOVE PARTITION on the source only", func(t *flow.T) error {
			return helper.Grant(t, node, privilege.AlterMove, src, user)
		}); err != nil {
			return err
		}
		return t.Then("I can not move the partition", func(t *flow.T) error {
			_, err := helper.Query(t, node, query, cluster.AsUser(user))
			return helper.ExpectDenied(err)
		})
	})
}
