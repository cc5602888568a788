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
	"sync"
	"time"
)

// Status is the outcome of a test.
type Status int

// Statuses are ordered by severity.
const (
	OK Status = iota
	Skip
	XOK
	XFail
	Fail
	Error
)

var statusNames = map[Status]string{
	OK:    "OK",
	Skip:  "Skip",
	XOK:   "XOK",
	XFail: "XFail",
	Fail:  "Fail",
	Error: "Error",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Failed reports whether the status makes the parent test fail.
func (s Status) Failed() bool {
	return s == Fail || s == Error
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if strings.EqualFold(name, string(text)) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown test status: %s", text)
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return OK
	case IsAssertion(err):
		return Fail
	default:
		return Error
	}
}

func worse(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// Result is the outcome of a single test run.
type Result struct {
	ID       uint64        `json:"id"`
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Kind     Kind          `json:"kind"`
	Status   Status        `json:"status"`
	Err      error         `json:"-"`
	Message  string        `json:"message,omitempty"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

// Summary counts results by status.
type Summary struct {
	Counts map[Status]int
	Failed []Result
}

// OK reports whether no result failed.
func (s Summary) OK() bool {
	return len(s.Failed) == 0
}

func (s Summary) String() string {
	var parts []string
	for st := OK; st <= Error; st++ {
		if n := s.Counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	if len(parts) == 0 {
		return "no tests"
	}
	return strings.Join(parts, ", ")
}

// Collector is a Reporter that keeps every result it receives.
type Collector struct {
	mu      sync.Mutex
	results []Result
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements the Reporter interface.
func (c *Collector) Report(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

// Results returns the results in the order they were reported.
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

// Summary summarizes the collected results of the given kinds, or all of
// them if no kind is given.
func (c *Collector) Summary(kinds ...Kind) Summary {
	s := Summary{Counts: make(map[Status]int)}
	for _, res := range c.Results() {
		if len(kinds) > 0 && !hasKind(kinds, res.Kind) {
			continue
		}
		s.Counts[res.Status]++
		if res.Status.Failed() {
			s.Failed = append(s.Failed, res)
		}
	}
	return s
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
