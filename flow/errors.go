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

	"github.com/hashicorp/go-multierror"
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrTestNotFound is returned by Load when no test was registered under
	// the given path.
	ErrTestNotFound = errors.NewKind("test not found: %s")

	// ErrAttributeNotFound is returned by Load when the path exists but does
	// not define the requested attribute.
	ErrAttributeNotFound = errors.NewKind("test %s has no attribute %q")

	// ErrInvalidPoolSize is returned when a pool is created with less than
	// one worker.
	ErrInvalidPoolSize = errors.NewKind("invalid pool size: %d")

	// ErrPoolClosed is returned when a test is submitted to a closed pool.
	ErrPoolClosed = errors.NewKind("pool is closed")

	// ErrAssertion marks a test failure, as opposed to an error raised while
	// running the test.
	ErrAssertion = errors.NewKind("assertion failed: %s")

	// ErrPanic is returned when a test function panics.
	ErrPanic = errors.NewKind("test %s panicked: %v")

	// ErrChildFailed is the error of a test that returned no error itself but
	// had at least one failing child.
	ErrChildFailed = errors.NewKind("%s: one or more nested tests failed")

	// ErrAlreadyRunning is returned by ProcessList.AddProcess for duplicated
	// test paths.
	ErrAlreadyRunning = errors.NewKind("test %s is already running")
)

// Assert returns an assertion error with the given message if cond is false.
func Assert(cond bool, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	return Failf(format, args...)
}

// Failf returns an assertion error with a formatted message.
func Failf(format string, args ...interface{}) error {
	return ErrAssertion.New(fmt.Sprintf(format, args...))
}

// IsAssertion reports whether err is a test failure. Aggregated errors are
// failures only if every one of their errors is.
func IsAssertion(err error) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *multierror.Error:
		if len(e.Errors) == 0 {
			return false
		}
		for _, err := range e.Errors {
			if !IsAssertion(err) {
				return false
			}
		}
		return true
	default:
		return ErrAssertion.Is(err) || ErrChildFailed.Is(err)
	}
}
