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
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

func init() {
	flow.Register(Path+".grant_option", Attr, grantOption, flow.WithDescription("GRANT ... WITH GRANT OPTION"))
}

var grantOptionPrivileges = []string{
	privilege.Select,
	privilege.Insert,
	privilege.Alter,
	privilege.AlterColumn,
}

func grantOption(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	table, err := helper.WithTable(t, node, helper.MergeTree)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, priv := range grantOptionPrivileges {
		priv := priv
		if err := t.Scenario(strings.ToLower(priv), func(t *flow.T) error {
			return checkGrantOption(t, node, priv, table)
		}); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// grantOptionCase sets up a grantor holding priv and tells whether the
// grantor can pass it on.
type grantOptionCase struct {
	name    string
	setup   func(t *flow.T, node cluster.Node, priv, on, grantor string) error
	allowed bool
}

var grantOptionCases = []grantOptionCase{
	{
		name: "grant without grant option",
		setup: func(t *flow.T, node cluster.Node, priv, on, grantor string) error {
			return helper.Grant(t, node, priv, on, grantor)
		},
	},
	{
		name: "grant with grant option",
		setup: func(t *flow.T, node cluster.Node, priv, on, grantor string) error {
			return helper.Exec(t, node, fmt.Sprintf("GRANT %s ON %s TO %s WITH GRANT OPTION", priv, on, grantor))
		},
		allowed: true,
	},
	{
		name: "grant option revoked",
		setup: func(t *flow.T, node cluster.Node, priv, on, grantor string) error {
			return helper.Exec(t, node,
				fmt.Sprintf("GRANT %s ON %s TO %s WITH GRANT OPTION", priv, on, grantor),
				fmt.Sprintf("REVOKE GRANT OPTION FOR %s ON %s FROM %s", priv, on, grantor),
			)
		},
	},
	{
		name: "grant option through a role",
		setup: func(t *flow.T, node cluster.Node, priv, on, grantor string) error {
			role, err := helper.WithRole(t, node)
			if err != nil {
				return err
			}
			return helper.Exec(t, node,
				fmt.Sprintf("GRANT %s ON %s TO %s WITH GRANT OPTION", priv, on, role),
				fmt.Sprintf("GRANT %s TO %s", role, grantor),
			)
		},
		allowed: true,
	},
}

func checkGrantOption(t *flow.T, node cluster.Node, priv, table string) error {
	var result *multierror.Error
	for _, c := range grantOptionCases {
		c := c
		if err := t.Scenario(c.name, func(t *flow.T) error {
			grantor, err := helper.WithUser(t, node)
			if err != nil {
				return err
			}
			grantee, err := helper.WithUser(t, node)
			if err != nil {
				return err
			}

			if err := c.setup(t, node, priv, table, grantor); err != nil {
				return err
			}

			grant := fmt.Sprintf("GRANT %s ON %s TO %s", priv, table, grantee)
			if !c.allowed {
				return t.Then("the user can not grant "+priv, func(t *flow.T) error {
					_, err := helper.Query(t, node, grant, cluster.AsUser(grantor))
					return helper.ExpectDenied(err)
				})
			}

			if err := t.Then("the user can grant "+priv, func(t *flow.T) error {
				_, err := helper.Query(t, node, grant, cluster.AsUser(grantor))
				return helper.ExpectAllowed(err)
			}); err != nil {
				return err
			}
			return t.And("the grantee holds "+priv, func(t *flow.T) error {
				res, err := helper.Query(t, node, "SHOW TABLES", cluster.AsUser(grantee))
				if err := helper.ExpectAllowed(err); err != nil {
					return err
				}
				return flow.Assert(res.Contains(table), "table %s not visible to the grantee", table)
			})
		}); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
