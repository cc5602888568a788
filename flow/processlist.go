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
	"context"
	"sort"
	"sync"
	"time"
)

// Process is a test currently running on a pool.
type Process struct {
	Path      string
	Kind      Kind
	StartedAt time.Time
	Kill      context.CancelFunc
}

// ProcessList is a structure that keeps track of all the running tests.
type ProcessList struct {
	mu    sync.RWMutex
	procs map[string]*Process
}

// NewProcessList creates a new process list.
func NewProcessList() *ProcessList {
	return &ProcessList{
		procs: make(map[string]*Process),
	}
}

// Processes returns the running tests, oldest first.
func (pl *ProcessList) Processes() []Process {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	var result = make([]Process, 0, len(pl.procs))

	for _, proc := range pl.procs {
		result = append(result, *proc)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].Path < result[j].Path
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})

	return result
}

// AddProcess adds a running test to the list and returns a context that is
// cancelled when the process is killed.
func (pl *ProcessList) AddProcess(
	ctx context.Context,
	path string,
	kind Kind,
) (context.Context, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if _, ok := pl.procs[path]; ok {
		return nil, ErrAlreadyRunning.New(path)
	}

	newCtx, cancel := context.WithCancel(ctx)
	pl.procs[path] = &Process{
		Path:      path,
		Kind:      kind,
		StartedAt: time.Now(),
		Kill:      cancel,
	}

	return newCtx, nil
}

// Done removes the test with the given path from the list.
func (pl *ProcessList) Done(path string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if p, ok := pl.procs[path]; ok {
		p.Kill()
		delete(pl.procs, path)
	}
}

// Kill cancels the context of the test with the given path. It returns
// false if no such test is running.
func (pl *ProcessList) Kill(path string) bool {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	p, ok := pl.procs[path]
	if ok {
		p.Kill()
	}
	return ok
}

// KillAll cancels every running test.
func (pl *ProcessList) KillAll() {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	for _, p := range pl.procs {
		p.Kill()
	}
}
