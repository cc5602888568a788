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

// Package alter holds the scenarios of the ALTER privileges. Each scenario
// covers one group of the ALTER hierarchy: every privilege of the group is
// checked alone and through the privileges above it.
package alter

import (
	"fmt"

	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
)

const (
	path = "rbac.tests.privileges.alter"
	attr = "feature"
)

// group builds the scenario of a group of ALTER privileges. checks returns
// the checks to run against a freshly created table.
func group(checks func(table string) []helper.PrivilegeCheck) flow.Func {
	return func(t *flow.T, args flow.Args) error {
		node, err := helper.Node(t, args)
		if err != nil {
			return err
		}
		table, err := helper.WithTable(t, node, helper.MergeTree)
		if err != nil {
			return err
		}
		return helper.CheckPrivileges(t, node, checks(table)...)
	}
}

func register(name, description string, checks func(table string) []helper.PrivilegeCheck) {
	flow.Register(path+"."+name, attr, group(checks), flow.WithDescription(description))
}

func alterf(table, format string, args ...interface{}) string {
	return fmt.Sprintf("ALTER TABLE %s ", table) + fmt.Sprintf(format, args...)
}
