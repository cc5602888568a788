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

package privileges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/rbac-suite/cluster/simulated"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
)

const (
	failingPath  = "rbac.tests.privileges.testing.failing"
	blockingPath = "rbac.tests.privileges.testing.blocking"
)

// blocking scenarios signal started and wait for release.
var blocking struct {
	started sync.WaitGroup
	release chan struct{}
}

func blockingPaths() []string {
	paths := make([]string, PoolSize)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s_%02d", blockingPath, i)
	}
	return paths
}

func init() {
	flow.Register(failingPath, Attr, func(t *flow.T, _ flow.Args) error {
		return flow.Failf("failing on purpose")
	})
	for _, path := range blockingPaths() {
		flow.Register(path, Attr, func(t *flow.T, _ flow.Args) error {
			blocking.started.Done()
			<-blocking.release
			return nil
		})
	}
}

// recordingScheduler wraps a pool and records how the feature uses it.
type recordingScheduler struct {
	pool *flow.Pool

	mu             sync.Mutex
	submitted      []*flow.Test
	args           []flow.Args
	tasks          []*flow.Task
	closes         int
	allDoneAtClose bool
	failSubmitAt   int
}

var errSubmit = errors.New("submit failed")

func newRecordingScheduler(t *testing.T, size int) *recordingScheduler {
	pool, err := flow.NewPool(size)
	require.NoError(t, err)
	return &recordingScheduler{pool: pool, failSubmitAt: -1}
}

func (s *recordingScheduler) Submit(parent *flow.T, test *flow.Test, args flow.Args) (*flow.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.submitted) == s.failSubmitAt {
		return nil, errSubmit
	}
	task, err := s.pool.Submit(parent, test, args)
	if err != nil {
		return nil, err
	}
	s.submitted = append(s.submitted, test)
	s.args = append(s.args, args)
	s.tasks = append(s.tasks, task)
	return task, nil
}

func (s *recordingScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++
	s.allDoneAtClose = true
	for _, task := range s.tasks {
		if !task.Done() {
			s.allDoneAtClose = false
		}
	}
	s.pool.Close()
}

func (s *recordingScheduler) names() []string {
	names := make([]string, len(s.submitted))
	for i, test := range s.submitted {
		names[i] = test.Name
	}
	return names
}

func lastElements(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = p[strings.LastIndex(p, ".")+1:]
	}
	return names
}

func runFeature(t *testing.T, fn func(t *flow.T) error, opts ...flow.RunOption) (*flow.Collector, error) {
	t.Helper()
	collector := flow.NewCollector()
	ctx := helper.WithCluster(context.Background(), simulated.New("sharded_cluster"))
	opts = append(opts, flow.WithReporter(collector))
	_, err := flow.Run(ctx, flow.Feature(flow.New("privileges", func(t *flow.T, _ flow.Args) error {
		return fn(t)
	})), nil, opts...)
	return collector, err
}

func TestScenariosRegistered(t *testing.T) {
	require := require.New(t)
	require.Len(Scenarios, 16)

	registered := flow.Registered()
	require.Contains(registered, Path+"."+Attr)
	for _, path := range Scenarios {
		require.Contains(registered, path+"."+Attr)
	}
}

func TestRunScenarios(t *testing.T) {
	require := require.New(t)
	sched := newRecordingScheduler(t, PoolSize)
	tracer := mocktracer.New()

	collector, err := runFeature(t, func(t *flow.T) error {
		return RunScenarios(t, sched, Scenarios)
	}, flow.WithTracer(tracer))
	require.NoError(err)

	require.Equal(lastElements(Scenarios), sched.names())
	for i, test := range sched.submitted {
		require.Equal(flow.KindFeature, test.Kind, test.Name)
		require.True(test.Flags.Has(flow.TE), test.Name)
		require.NotNil(sched.args[i])
		require.Empty(sched.args[i])
	}
	require.Equal(1, sched.closes)
	require.True(sched.allDoneAtClose)

	summary := collector.Summary(flow.KindFeature)
	require.True(summary.OK(), summary.String())
	require.Equal(len(Scenarios)+1, summary.Counts[flow.OK])

	features := 0
	for _, span := range tracer.FinishedSpans() {
		if span.Tag("test.kind") == flow.KindFeature.String() {
			features++
			require.Equal(flow.OK.String(), span.Tag("test.status"))
		}
	}
	require.Equal(len(Scenarios), features)
}

func TestRunScenariosLoadError(t *testing.T) {
	require := require.New(t)
	sched := newRecordingScheduler(t, PoolSize)

	paths := []string{Scenarios[0], Path + ".missing", Scenarios[1]}
	_, err := runFeature(t, func(t *flow.T) error {
		err := RunScenarios(t, sched, paths)
		require.True(flow.ErrTestNotFound.Is(err))
		return err
	})
	require.Error(err)

	require.Equal([]string{"insert"}, sched.names())
	require.Equal(1, sched.closes)
	require.True(sched.allDoneAtClose)
	require.Equal(flow.OK, sched.tasks[0].Wait().Status)
}

func TestRunScenariosSubmitError(t *testing.T) {
	require := require.New(t)
	sched := newRecordingScheduler(t, PoolSize)
	sched.failSubmitAt = 2

	_, err := runFeature(t, func(t *flow.T) error {
		err := RunScenarios(t, sched, Scenarios)
		require.Equal(errSubmit, err)
		return err
	})
	require.Error(err)

	require.Len(sched.submitted, 2)
	require.Equal(1, sched.closes)
	require.True(sched.allDoneAtClose)
}

func TestRunScenariosFailureDoesNotStopOthers(t *testing.T) {
	require := require.New(t)
	sched := newRecordingScheduler(t, 2)

	paths := []string{failingPath, Scenarios[0], Scenarios[3]}
	collector, err := runFeature(t, func(t *flow.T) error {
		return RunScenarios(t, sched, paths)
	})
	require.Error(err)
	require.True(flow.IsAssertion(err))

	require.Equal([]string{"failing", "insert", "public_tables"}, sched.names())
	require.Equal(1, sched.closes)
	require.True(sched.allDoneAtClose)

	statuses := make(map[string]flow.Status)
	for _, r := range collector.Results() {
		if r.Kind == flow.KindFeature {
			statuses[r.Name] = r.Status
		}
	}
	require.Equal(flow.Fail, statuses["failing"])
	require.Equal(flow.OK, statuses["insert"])
	require.Equal(flow.OK, statuses["public_tables"])
	require.Equal(flow.Fail, statuses["privileges"])
}

func TestFeatureUsesPoolOfSixteen(t *testing.T) {
	require := require.New(t)

	var sched *recordingScheduler
	orig := newScheduler
	defer func() { newScheduler = orig }()
	newScheduler = func(size int) (Scheduler, error) {
		require.Equal(PoolSize, size)
		sched = newRecordingScheduler(t, size)
		return sched, nil
	}

	test, err := flow.Load(Path, Attr)
	require.NoError(err)

	ctx := helper.WithCluster(context.Background(), simulated.New("sharded_cluster"))
	res, err := flow.Run(ctx, flow.Feature(test), nil)
	require.NoError(err)
	require.Equal(flow.OK, res.Status)
	require.Equal("/privileges", res.Path)

	require.Equal(lastElements(Scenarios), sched.names())
	require.Equal(1, sched.closes)
	require.True(sched.allDoneAtClose)
	require.True(sched.pool.Closed())
}

func TestSixteenScenariosRunTogether(t *testing.T) {
	require := require.New(t)
	sched := newRecordingScheduler(t, PoolSize)
	require.Equal(PoolSize, sched.pool.Size())

	blocking.started.Add(PoolSize)
	blocking.release = make(chan struct{})

	var finished int64
	reporter := flow.ReporterFunc(func(res flow.Result) {
		if res.Kind == flow.KindFeature && res.Name != "privileges" {
			atomic.AddInt64(&finished, 1)
		}
	})

	done := make(chan error, 1)
	go func() {
		ctx := helper.WithCluster(context.Background(), simulated.New("sharded_cluster"))
		_, err := flow.Run(ctx, flow.Feature(flow.New("privileges", func(t *flow.T, _ flow.Args) error {
			return RunScenarios(t, sched, blockingPaths())
		})), nil, flow.WithReporter(reporter))
		done <- err
	}()

	started := make(chan struct{})
	go func() {
		blocking.started.Wait()
		close(started)
	}()
	select {
	case <-started:
	case <-time.After(10 * time.Second):
		close(blocking.release)
		require.FailNow("scenarios did not start together")
	}

	stats := sched.pool.Stats()
	require.Equal(int64(PoolSize), stats.Submitted)
	require.Equal(int64(PoolSize), stats.Running)
	require.Len(sched.pool.Processes(), PoolSize)
	require.False(sched.pool.Closed())
	require.Zero(atomic.LoadInt64(&finished))

	close(blocking.release)
	require.NoError(<-done)

	require.Equal(int64(PoolSize), atomic.LoadInt64(&finished))
	require.Equal(int64(PoolSize), sched.pool.Stats().Completed)
	require.Equal(1, sched.closes)
	require.True(sched.allDoneAtClose)
	require.True(sched.pool.Closed())
}

func TestFeaturePoolSizeArg(t *testing.T) {
	require := require.New(t)

	var got int
	orig := newScheduler
	defer func() { newScheduler = orig }()
	newScheduler = func(size int) (Scheduler, error) {
		got = size
		return nil, flow.ErrInvalidPoolSize.New(size)
	}

	test, err := flow.Load(Path, Attr)
	require.NoError(err)
	_, err = flow.Run(context.Background(), flow.Feature(test), flow.Args{PoolSizeArg: "4"})
	require.True(flow.ErrInvalidPoolSize.Is(err))
	require.Equal(4, got)

	_, err = flow.Run(context.Background(), flow.Feature(test), flow.Args{PoolSizeArg: "many"})
	require.Error(err)
}

func TestFeaturePoolCreationError(t *testing.T) {
	orig := newScheduler
	defer func() { newScheduler = orig }()
	newScheduler = func(int) (Scheduler, error) {
		return nil, flow.ErrInvalidPoolSize.New(0)
	}

	test, err := flow.Load(Path, Attr)
	require.NoError(t, err)
	_, err = flow.Run(context.Background(), flow.Feature(test), nil)
	require.True(t, flow.ErrInvalidPoolSize.Is(err))
}
