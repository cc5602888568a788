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
	register("alter_ttl", "ALTER TTL privileges", ttlChecks)
	register("alter_settings", "ALTER SETTINGS privilege", settingsChecks)
	register("alter_update", "ALTER UPDATE privilege", updateChecks)
	register("alter_delete", "ALTER DELETE privilege", deleteChecks)
}

func ttlChecks(table string) []helper.PrivilegeCheck {
	modifyTTL := alterf(table, "MODIFY TTL d + INTERVAL 1 DAY")

	return []helper.PrivilegeCheck{
		{
			Privilege: privilege.AlterTTL,
			On:        table,
			Query:     modifyTTL,
		},
		{
			Privilege: privilege.AlterMaterializeTTL,
			On:        table,
			Query:     alterf(table, "MATERIALIZE TTL"),
			Reset:     []string{modifyTTL},
		},
	}
}

func settingsChecks(table string) []helper.PrivilegeCheck {
	return []helper.PrivilegeCheck{{
		Privilege: privilege.AlterSettings,
		On:        table,
		Query:     alterf(table, "MODIFY SETTING merge_with_ttl_timeout = 5"),
	}}
}

func updateChecks(table string) []helper.PrivilegeCheck {
	return []helper.PrivilegeCheck{{
		Privilege: privilege.AlterUpdate,
		On:        table,
		Query:     alterf(table, "UPDATE a = 'updated' WHERE 1"),
	}}
}

func deleteChecks(table string) []helper.PrivilegeCheck {
	return []helper.PrivilegeCheck{{
		Privilege: privilege.AlterDelete,
		On:        table,
		Query:     alterf(table, "DELETE WHERE 1"),
	}}
}
