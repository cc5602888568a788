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

package flow

import "strings"

// Flags modify how a test is run.
type Flags uint32

const (
	// TE runs the test under its own tracing span, labelled with the test
	// path. Nested tests inherit the flag and get child spans.
	TE Flags = 1 << iota
	// XFAIL marks a test that is expected to fail.
	XFAIL
	// SKIP reports the test as skipped without running it.
	SKIP
)

// inherited are the flags nested tests receive from their parent.
const inherited = TE

var flagNames = []struct {
	flag Flags
	name string
}{
	{TE, "TE"},
	{XFAIL, "XFAIL"},
	{SKIP, "SKIP"},
}

// Has returns whether all the flags in o are set.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
