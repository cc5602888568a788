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

import "github.com/hashicorp/go-multierror"

// Task is a handle to a test submitted to a pool.
type Task struct {
	test *Test
	done chan struct{}
	res  *Result
}

func newTask(test *Test) *Task {
	return &Task{test: test, done: make(chan struct{})}
}

func (t *Task) finish(res *Result) {
	t.res = res
	close(t.done)
}

// Test returns the submitted test.
func (t *Task) Test() *Test { return t.test }

// Done reports whether the task has completed.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task completes and returns its result.
func (t *Task) Wait() *Result {
	<-t.done
	return t.res
}

// Join waits for every task to complete, in order, and returns the errors
// of the failed ones. A failing task does not stop the wait for the others.
func Join(tasks []*Task) error {
	var result *multierror.Error
	for _, task := range tasks {
		if res := task.Wait(); res.Status.Failed() {
			result = multierror.Append(result, res.Err)
		}
	}
	return result.ErrorOrNil()
}

// RunScenario runs test with args as a nested test of t. When pool is nil
// the test runs inline and its error is returned. Otherwise it is submitted
// to the pool and the task is appended to tasks; the returned error is then
// only a submission error.
func RunScenario(t *T, pool Submitter, tasks *[]*Task, test *Test, args Args) error {
	if pool == nil {
		return t.Run(test, args)
	}

	task, err := pool.Submit(t, test, args)
	if err != nil {
		return err
	}
	*tasks = append(*tasks, task)
	return nil
}
