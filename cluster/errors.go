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

package cluster

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/src-d/go-errors.v1"
)

// AccessDeniedCode is the server error code of statements run without the
// required privileges.
const AccessDeniedCode = 497

const notEnoughPrivileges = "Not enough privileges"

var (
	// ErrNodeNotFound is returned when a node name is not part of the
	// cluster.
	ErrNodeNotFound = errors.NewKind("node not found: %s")

	// ErrNoNodes is returned when a cluster is configured without nodes.
	ErrNoNodes = errors.NewKind("cluster %s has no nodes")

	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.NewKind("duplicate node: %s")

	// ErrQuery wraps errors returned by a node.
	ErrQuery = errors.NewKind("%s: query failed as user %q")
)

// IsPrivilegeError reports whether err, or any error it wraps, is a denial
// of access because of missing privileges.
func IsPrivilegeError(err error) bool {
	for err != nil {
		if me, ok := err.(*mysql.MySQLError); ok && me.Number == AccessDeniedCode {
			return true
		}
		if strings.Contains(err.Error(), notEnoughPrivileges) {
			return true
		}

		switch e := err.(type) {
		case interface{ Cause() error }:
			err = e.Cause()
		case interface{ Unwrap() error }:
			err = e.Unwrap()
		default:
			return false
		}
	}
	return false
}
