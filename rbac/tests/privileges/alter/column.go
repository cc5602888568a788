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
	register("alter_column", "ALTER COLUMN privileges", columnChecks)
}

func columnChecks(table string) []helper.PrivilegeCheck {
	addZ := alterf(table, "ADD COLUMN IF NOT EXISTS z String")
	dropZ := alterf(table, "DROP COLUMN IF EXISTS z")

	return []helper.PrivilegeCheck{
		{
			Privilege: privilege.AlterAddColumn,
			On:        table,
			Query:     alterf(table, "ADD COLUMN z String"),
			Reset:     []string{dropZ},
		},
		{
			Privilege: privilege.AlterDropColumn,
			On:        table,
			Query:     alterf(table, "DROP COLUMN z"),
			Reset:     []string{addZ},
		},
		{
			Privilege: privilege.AlterModifyColumn,
			On:        table,
			Query:     alterf(table, "MODIFY COLUMN x String DEFAULT 'x'"),
		},
		{
			Privilege: privilege.AlterCommentColumn,
			On:        table,
			Query:     alterf(table, "COMMENT COLUMN x 'column x'"),
		},
		{
			Privilege: privilege.AlterClearColumn,
			On:        table,
			Query:     alterf(table, "CLEAR COLUMN x"),
		},
		{
			Privilege: privilege.AlterRenameColumn,
			On:        table,
			Query:     alterf(table, "RENAME COLUMN z TO w"),
			Reset:     []string{alterf(table, "DROP COLUMN IF EXISTS w"), addZ},
		},
	}
}
