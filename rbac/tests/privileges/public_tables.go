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
	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
)

func init() {
	flow.Register(Path+".public_tables", Attr, publicTables, flow.WithDescription("tables readable without privileges"))
}

var publicQueries = []string{
	"SELECT * FROM system.one",
	"SELECT * FROM system.numbers LIMIT 1",
	"SELECT * FROM system.contributors LIMIT 1",
	"SELECT * FROM system.functions LIMIT 1",
}

func publicTables(t *flow.T, args flow.Args) error {
	node, err := helper.Node(t, args)
	if err != nil {
		return err
	}
	user, err := helper.WithUser(t, node)
	if err != nil {
		return err
	}

	for _, q := range publicQueries {
		q := q
		if err := t.Then("I can run "+q, func(t *flow.T) error {
			res, err := helper.Query(t, node, q, cluster.AsUser(user))
			if err := helper.ExpectAllowed(err); err != nil {
				return err
			}
			return flow.Assert(len(res.Rows) == 1, "expected one row, got %d", len(res.Rows))
		}); err != nil {
			return err
		}
	}
	return nil
}
