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
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

// ExtraGrant is a privilege on an object granted alongside the checked one.
type ExtraGrant struct {
	Privilege string
	On        string
}

// PrivilegeCheck describes a query that requires a privilege.
type PrivilegeCheck struct {
	// Name of the scenario run by CheckPrivileges. It defaults to the
	// privilege.
	Name string
	// Privilege is the privilege the query requires.
	Privilege string
	// On is the object the privilege is granted on, such as a table name.
	On string
	// Query is run as the test user.
	Query string
	// ExtraGrants are granted to the test user in every sub-scenario,
	// including the one without the privilege.
	ExtraGrants []ExtraGrant
	// Reset statements run as the administrative user before each query,
	// to restore the state a previous run of the query changed.
	Reset []string
	// PrivilegeErrorOnly accepts any error other than a privilege error
	// when the query is expected to be allowed. It is used for statements
	// that fail after the access check on some table engines.
	PrivilegeErrorOnly bool
}

func (c PrivilegeCheck) run(t *flow.T, node cluster.Node, user string) error {
	if err := Exec(t, node, c.Reset...); err != nil {
		return err
	}
	_, err := Query(t, node, c.Query, cluster.AsUser(user))
	return err
}

func (c PrivilegeCheck) expectAllowed(t *flow.T, node cluster.Node, user string) error {
	return t.Then("I can run the query", func(t *flow.T) error {
		err := c.run(t, node, user)
		if c.PrivilegeErrorOnly {
			return ExpectNotDenied(err)
		}
		return ExpectAllowed(err)
	})
}

func (c PrivilegeCheck) expectDenied(t *flow.T, node cluster.Node, user string) error {
	return t.Then("I can not run the query", func(t *flow.T) error {
		return ExpectDenied(c.run(t, node, user))
	})
}

// withCheckUser creates a user on t and grants it the extra privileges.
func (c PrivilegeCheck) withCheckUser(t *flow.T, node cluster.Node) (string, error) {
	user, err := WithUser(t, node)
	if err != nil {
		return "", err
	}
	for _, g := range c.ExtraGrants {
		if err := Grant(t, node, g.Privilege, g.On, user); err != nil {
			return "", err
		}
	}
	return user, nil
}

// CheckPrivilege runs the standard scenarios of a privilege: the query is
// denied without it, allowed when granted directly, through a role or
// through any privilege above it, and denied again once revoked.
func CheckPrivilege(t *flow.T, node cluster.Node, c PrivilegeCheck) error {
	scenarios := []struct {
		name string
		fn   func(t *flow.T) error
	}{
		{"without privilege", func(t *flow.T) error {
			user, err := c.withCheckUser(t, node)
			if err != nil {
				return err
			}
			return c.expectDenied(t, node, user)
		}},
		{"privilege granted directly", func(t *flow.T) error {
			return c.grantedDirectly(t, node, c.Privilege, false)
		}},
		{"privilege revoked", func(t *flow.T) error {
			return c.grantedDirectly(t, node, c.Privilege, true)
		}},
		{"privilege granted through a role", func(t *flow.T) error {
			return c.grantedThroughRole(t, node, false)
		}},
		{"role revoked", func(t *flow.T) error {
			return c.grantedThroughRole(t, node, true)
		}},
	}
	for _, a := range privilege.Ancestors(c.Privilege) {
		a := a
		scenarios = append(scenarios, struct {
			name string
			fn   func(t *flow.T) error
		}{"parent privilege " + strings.ToLower(a), func(t *flow.T) error {
			return c.grantedDirectly(t, node, a, false)
		}})
	}

	var result *multierror.Error
	for _, s := range scenarios {
		if err := t.Scenario(s.name, s.fn); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (c PrivilegeCheck) grantedDirectly(t *flow.T, node cluster.Node, priv string, revoke bool) error {
	user, err := c.withCheckUser(t, node)
	if err != nil {
		return err
	}

	if err := t.When("I grant "+priv, func(t *flow.T) error {
		return Grant(t, node, priv, c.On, user)
	}); err != nil {
		return err
	}
	if err := c.expectAllowed(t, node, user); err != nil {
		return err
	}
	if !revoke {
		return nil
	}

	if err := t.When("I revoke "+priv, func(t *flow.T) error {
		return Revoke(t, node, priv, c.On, user)
	}); err != nil {
		return err
	}
	return c.expectDenied(t, node, user)
}

func (c PrivilegeCheck) grantedThroughRole(t *flow.T, node cluster.Node, revoke bool) error {
	user, err := c.withCheckUser(t, node)
	if err != nil {
		return err
	}
	role, err := WithRole(t, node)
	if err != nil {
		return err
	}

	if err := t.When("I grant "+c.Privilege+" to a role granted to the user", func(t *flow.T) error {
		return Exec(t, node,
			"GRANT "+c.Privilege+" ON "+c.On+" TO "+role,
			"GRANT "+role+" TO "+user,
		)
	}); err != nil {
		return err
	}
	if err := c.expectAllowed(t, node, user); err != nil {
		return err
	}
	if !revoke {
		return nil
	}

	if err := t.When("I revoke the role", func(t *flow.T) error {
		return Exec(t, node, "REVOKE "+role+" FROM "+user)
	}); err != nil {
		return err
	}
	return c.expectDenied(t, node, user)
}

// CheckPrivileges runs CheckPrivilege for each check as a nested scenario.
func CheckPrivileges(t *flow.T, node cluster.Node, checks ...PrivilegeCheck) error {
	var result *multierror.Error
	for _, c := range checks {
		c := c
		name := c.Name
		if name == "" {
			name = strings.ToLower(c.Privilege)
		}
		if err := t.Scenario(name, func(t *flow.T) error {
			return CheckPrivilege(t, node, c)
		}); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
