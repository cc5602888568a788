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
	"sort"
	"strings"
	"sync"
)

// registry maps dotted test paths to their attributes.
type registry struct {
	mu    sync.RWMutex
	tests map[string]map[string]*Test
}

var defaultRegistry = &registry{tests: make(map[string]map[string]*Test)}

// Register makes fn loadable under the dotted path and attribute, e.g.
// Register("rbac.tests.privileges.insert", "feature", fn). The test name is
// the last element of the path unless set with WithName. Register is meant
// to be called from init functions and panics on duplicates.
func Register(path, attr string, fn Func, opts ...Option) {
	if err := defaultRegistry.register(path, attr, fn, opts...); err != nil {
		panic(err)
	}
}

// Load returns a copy of the test registered under path and attribute.
func Load(path, attr string) (*Test, error) {
	return defaultRegistry.load(path, attr)
}

// Registered returns the sorted "path.attribute" keys of every registered
// test.
func Registered() []string {
	return defaultRegistry.keys()
}

func (r *registry) register(path, attr string, fn Func, opts ...Option) error {
	if fn == nil {
		return fmt.Errorf("flow: register %s.%s: nil test function", path, attr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attrs, ok := r.tests[path]
	if !ok {
		attrs = make(map[string]*Test)
		r.tests[path] = attrs
	}

	if _, ok := attrs[attr]; ok {
		return fmt.Errorf("flow: test %s.%s is already registered", path, attr)
	}

	attrs[attr] = New(path[strings.LastIndex(path, ".")+1:], fn, opts...)
	return nil
}

func (r *registry) load(path, attr string) (*Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attrs, ok := r.tests[path]
	if !ok {
		return nil, ErrTestNotFound.New(path)
	}

	t, ok := attrs[attr]
	if !ok {
		return nil, ErrAttributeNotFound.New(path, attr)
	}

	nt := *t
	return &nt, nil
}

func (r *registry) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []string
	for path, attrs := range r.tests {
		for attr := range attrs {
			keys = append(keys, path+"."+attr)
		}
	}
	sort.Strings(keys)
	return keys
}
