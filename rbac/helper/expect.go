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
	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/flow"
)

// ExpectDenied checks that err is a privilege error.
func ExpectDenied(err error) error {
	if err == nil {
		return flow.Failf("expected the query to be denied, but it succeeded")
	}
	return flow.Assert(cluster.IsPrivilegeError(err), "expected a privilege error, got: %s", err)
}

// ExpectAllowed checks that a query succeeded.
func ExpectAllowed(err error) error {
	return flow.Assert(err == nil, "expected the query to succeed, got: %v", err)
}

// ExpectNotDenied checks that a query, which may fail for other reasons,
// did not fail because of missing privileges.
func ExpectNotDenied(err error) error {
	return flow.Assert(!cluster.IsPrivilegeError(err), "expected no privilege error, got: %s", err)
}

// ExpectOutput checks the output of a successful query.
func ExpectOutput(res *cluster.Result, err error, expected string) error {
	if err := ExpectAllowed(err); err != nil {
		return err
	}
	return flow.Assert(res.Output() == expected, "expected output %q, got %q", expected, res.Output())
}
