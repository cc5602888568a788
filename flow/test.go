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

import (
	"fmt"
	"strings"

	"github.com/mitchellh/hashstructure"
)

// Kind is the type of a test in the test tree.
type Kind int

const (
	KindModule Kind = iota
	KindSuite
	KindFeature
	KindScenario
	KindStep
)

var kindNames = map[Kind]string{
	KindModule:   "Module",
	KindSuite:    "Suite",
	KindFeature:  "Feature",
	KindScenario: "Scenario",
	KindStep:     "Step",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if strings.EqualFold(name, string(text)) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown test kind: %s", text)
}

// Args are the named arguments a test is invoked with.
type Args map[string]interface{}

// Func is the body of a test.
type Func func(t *T, args Args) error

// Test is a runnable test definition.
type Test struct {
	Name        string
	Kind        Kind
	Flags       Flags
	Description string
	Func        Func
}

// Option configures a Test.
type Option func(*Test)

// WithName sets the name of the test.
func WithName(name string) Option {
	return func(t *Test) {
		t.Name = name
	}
}

// WithFlags adds flags to the test.
func WithFlags(flags Flags) Option {
	return func(t *Test) {
		t.Flags |= flags
	}
}

// WithDescription sets a human readable description of the test.
func WithDescription(desc string) Option {
	return func(t *Test) {
		t.Description = desc
	}
}

// New returns a scenario test with the given name and body.
func New(name string, fn Func, opts ...Option) *Test {
	t := &Test{Name: name, Kind: KindScenario, Func: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Feature returns a copy of test to be run as a feature.
func Feature(test *Test, opts ...Option) *Test {
	return test.as(KindFeature, opts)
}

func (t *Test) as(kind Kind, opts []Option) *Test {
	nt := *t
	nt.Kind = kind
	for _, opt := range opts {
		opt(&nt)
	}
	return &nt
}

// ID returns a stable identifier of the test invoked with args.
func (t *Test) ID(args Args) (uint64, error) {
	return hashstructure.Hash(struct {
		Name  string
		Kind  Kind
		Flags Flags
		Args  Args
	}{t.Name, t.Kind, t.Flags, args}, nil)
}
