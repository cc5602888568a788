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
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// Submitter schedules tests for asynchronous execution.
type Submitter interface {
	// Submit schedules test as a nested test of parent and returns a handle
	// to wait for its result.
	Submit(parent *T, test *Test, args Args) (*Task, error)
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	Submitted int64
	Running   int64
	Completed int64
	Failed    int64
}

// Pool runs tests on a fixed number of workers. Submit blocks while every
// worker is busy.
type Pool struct {
	workers *ants.Pool
	procs   *ProcessList

	closeOnce sync.Once
	closed    atomic.Bool

	submitted atomic.Int64
	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

var _ Submitter = (*Pool)(nil)

// NewPool creates a pool with size workers.
func NewPool(size int) (*Pool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize.New(size)
	}

	workers, err := ants.NewPool(size, ants.WithPanicHandler(func(v interface{}) {
		logrus.WithField("system", "pool").Errorf("worker panic: %v", v)
	}))
	if err != nil {
		return nil, err
	}

	p := &Pool{
		workers: workers,
		procs:   NewProcessList(),
	}
	active.add(p)
	return p, nil
}

// Size returns the number of workers of the pool.
func (p *Pool) Size() int {
	return p.workers.Cap()
}

// Submit implements the Submitter interface. Tests are started in the order
// they are submitted; completion order is unspecified.
func (p *Pool) Submit(parent *T, test *Test, args Args) (*Task, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed.New()
	}

	task := newTask(test)
	p.submitted.Add(1)

	err := p.workers.Submit(func() {
		t := parent.child(test)
		ctx, err := p.procs.AddProcess(t.ctx, t.path, test.Kind)
		if err != nil {
			res := &Result{Path: t.path, Name: test.Name, Kind: test.Kind, Status: Error, Err: err, Message: err.Error()}
			p.finish(parent, task, res)
			return
		}
		t.ctx = ctx

		p.running.Add(1)
		res := t.run(args)
		p.running.Add(-1)
		p.procs.Done(t.path)

		p.finish(parent, task, res)
	})
	if err != nil {
		p.submitted.Add(-1)
		if err == ants.ErrPoolClosed {
			return nil, ErrPoolClosed.New()
		}
		return nil, err
	}

	return task, nil
}

func (p *Pool) finish(parent *T, task *Task, res *Result) {
	if res.Status.Failed() {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}
	parent.observe(res.Status)
	task.finish(res)
}

// Processes returns the tests currently running on the pool.
func (p *Pool) Processes() []Process {
	return p.procs.Processes()
}

// Kill cancels the context of every running test.
func (p *Pool) Kill() {
	p.procs.KillAll()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted: p.submitted.Load(),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Closed reports whether Close was called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Close stops accepting tests and releases the workers. Running tests are
// not waited for; Join them first. Close is safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.workers.Release()
		active.remove(p)
	})
}

type poolSet struct {
	mu    sync.Mutex
	pools []*Pool
}

var active = &poolSet{}

func (s *poolSet) add(p *Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = append(s.pools, p)
}

func (s *poolSet) remove(p *Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.pools {
		if q == p {
			s.pools = append(s.pools[:i], s.pools[i+1:]...)
			return
		}
	}
}

// ActivePools returns the pools that were created and not closed yet, in
// creation order.
func ActivePools() []*Pool {
	active.mu.Lock()
	defer active.mu.Unlock()
	return append([]*Pool(nil), active.pools...)
}
