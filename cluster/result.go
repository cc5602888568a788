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

import "strings"

// Result is the output of a query. Values are in their text representation.
type Result struct {
	Columns []string
	Rows    [][]string
}

// Output returns the rows as tab separated lines.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	lines := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		lines[i] = strings.Join(row, "\t")
	}
	return strings.Join(lines, "\n")
}

// Contains returns whether any value of the result equals v.
func (r *Result) Contains(v string) bool {
	if r == nil {
		return false
	}
	for _, row := range r.Rows {
		for _, val := range row {
			if val == v {
				return true
			}
		}
	}
	return false
}

// Column returns the values of the i-th column.
func (r *Result) Column(i int) []string {
	var values []string
	for _, row := range r.Rows {
		if i < len(row) {
			values = append(values, row[i])
		}
	}
	return values
}
