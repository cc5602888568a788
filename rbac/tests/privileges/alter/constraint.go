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
	"github.com/dolthub/rbac-suite/rbac/helper"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

func init() {
	register("alter_constraint", "ALTER CONSTRAINT privileges", constraintChecks)
}

func constraintChecks(table string) []helper.PrivilegeCheck {
	return []helper.PrivilegeCheck{
		{
			Privilege: privilege.AlterAddConstraint,
			On:        table,
			Query:     alterf(table, "ADD CONSTRAINT check_b CHECK b > 0"),
			Reset:     []string{alterf(table, "DROP CONSTRAINT IF EXISTS check_b")},
		},
		{
			Privilege: privilege.AlterDropConstraint,
			On:        table,
			Query:     alterf(table, "DROP CONSTRAINT check_b"),
			Reset:     []string{alterf(table, "ADD CONSTRAINT IF NOT EXISTS check_b CHECK b > 0")},
		},
	}
}
