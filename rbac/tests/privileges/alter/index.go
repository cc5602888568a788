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
	register("alter_index", "ALTER INDEX privileges", indexChecks)
}

func indexChecks(table string) []helper.PrivilegeCheck {
	addIndex := alterf(table, "ADD INDEX IF NOT EXISTS idx_b b TYPE minmax GRANULARITY 1")

	return []helper.PrivilegeCheck{
		{
			Privilege: privilege.AlterOrderBy,
			On:        table,
			Query:     alterf(table, "MODIFY ORDER BY d"),
		},
		{
			Privilege: privilege.AlterAddIndex,
			On:        table,
			Query:     alterf(table, "ADD INDEX idx_b b TYPE minmax GRANULARITY 1"),
			Reset:     []string{alterf(table, "DROP INDEX IF EXISTS idx_b")},
		},
		{
			Privilege: privilege.AlterDropIndex,
			On:        table,
			Query:     alterf(table, "DROP INDEX idx_b"),
			Reset:     []string{addIndex},
		},
		{
			Privilege: privilege.AlterMaterializeIdx,
			On:        table,
			Query:     alterf(table, "MATERIALIZE INDEX idx_b"),
			Reset:     []string{addIndex},
		},
		{
			Privilege: privilege.AlterClearIndex,
			On:        table,
			Query:     alterf(table, "CLEAR INDEX idx_b"),
			Reset:     []string{addIndex},
		},
	}
}
