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
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
)

// T is the state of a running test. It is passed to the test body and is
// used to run nested tests.
type T struct {
	ctx      context.Context
	parent   *T
	test     *Test
	path     string
	flags    Flags
	log      *logrus.Entry
	tracer   opentracing.Tracer
	span     opentracing.Span
	reporter Reporter

	mu       sync.Mutex
	cleanups []func() error
	worst    Status
}

// RunOption configures a top level run.
type RunOption func(*T)

// WithReporter sets the reporter that receives every result of the run.
func WithReporter(r Reporter) RunOption {
	return func(t *T) {
		t.reporter = r
	}
}

// WithLogger sets the base logger of the run.
func WithLogger(l *logrus.Entry) RunOption {
	return func(t *T) {
		t.log = l
	}
}

// WithTracer sets the tracer used for TE tests. It defaults to the global
// opentracing tracer.
func WithTracer(tracer opentracing.Tracer) RunOption {
	return func(t *T) {
		t.tracer = tracer
	}
}

// Run runs test as the root of a test tree and returns its result. The
// returned error is the test error for failed tests.
func Run(ctx context.Context, test *Test, args Args, opts ...RunOption) (*Result, error) {
	t := &T{
		ctx:      ctx,
		test:     test,
		path:     "/" + test.Name,
		flags:    test.Flags,
		log:      logrus.NewEntry(logrus.StandardLogger()),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = opentracing.GlobalTracer()
	}
	t.log = t.log.WithFields(logrus.Fields{"test": t.path, "kind": test.Kind})

	res := t.run(args)
	if res.Status.Failed() {
		return res, res.Err
	}
	return res, nil
}

func (t *T) child(test *Test) *T {
	path := t.path + "/" + test.Name
	return &T{
		ctx:      t.ctx,
		parent:   t,
		test:     test,
		path:     path,
		flags:    test.Flags | (t.flags & inherited),
		log:      t.log.WithFields(logrus.Fields{"test": path, "kind": test.Kind}),
		tracer:   t.tracer,
		reporter: t.reporter,
	}
}

// Context returns the context of the test. It carries the test span when
// the test is traced.
func (t *T) Context() context.Context { return t.ctx }

// Value returns the value associated with key in the test context.
func (t *T) Value(key interface{}) interface{} { return t.ctx.Value(key) }

// WithValue attaches a value to the test context. Only tests started after
// the call see it, so it must be used before running nested tests.
func (t *T) WithValue(key, val interface{}) {
	t.ctx = context.WithValue(t.ctx, key, val)
}

// Log returns the logger of the test.
func (t *T) Log() *logrus.Entry { return t.log }

// Name returns the name of the test.
func (t *T) Name() string { return t.test.Name }

// Path returns the slash separated path of the test from the root.
func (t *T) Path() string { return t.path }

// Kind returns the kind of the test.
func (t *T) Kind() Kind { return t.test.Kind }

// Flags returns the effective flags of the test.
func (t *T) Flags() Flags { return t.flags }

// Span returns the tracing span of the test, or nil if it is not traced.
func (t *T) Span() opentracing.Span { return t.span }

// Cleanup registers fn to run when the test ends. Cleanups run in reverse
// order of registration, whatever the outcome of the test.
func (t *T) Cleanup(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, fn)
}

// Run runs test as a nested test of t. It returns the error of the nested
// test if it failed.
func (t *T) Run(test *Test, args Args) error {
	res := t.child(test).run(args)
	t.observe(res.Status)
	if res.Status.Failed() {
		return res.Err
	}
	return nil
}

// Scenario runs fn as a nested scenario.
func (t *T) Scenario(name string, fn func(t *T) error) error {
	return t.step(KindScenario, name, fn)
}

// Given runs fn as a setup step.
func (t *T) Given(name string, fn func(t *T) error) error {
	return t.step(KindStep, "Given "+name, fn)
}

// When runs fn as an action step.
func (t *T) When(name string, fn func(t *T) error) error {
	return t.step(KindStep, "When "+name, fn)
}

// Then runs fn as a check step.
func (t *T) Then(name string, fn func(t *T) error) error {
	return t.step(KindStep, "Then "+name, fn)
}

// And runs fn as a continuation of the previous step.
func (t *T) And(name string, fn func(t *T) error) error {
	return t.step(KindStep, "And "+name, fn)
}

// By runs fn as a sub step of the current one.
func (t *T) By(name string, fn func(t *T) error) error {
	return t.step(KindStep, "By "+name, fn)
}

func (t *T) step(kind Kind, name string, fn func(t *T) error) error {
	return t.Run(&Test{
		Name: name,
		Kind: kind,
		Func: func(t *T, _ Args) error { return fn(t) },
	}, nil)
}

func (t *T) observe(s Status) {
	if !s.Failed() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.worst = worse(t.worst, s)
}

func (t *T) run(args Args) *Result {
	res := &Result{
		Path:  t.path,
		Name:  t.test.Name,
		Kind:  t.test.Kind,
		Start: time.Now(),
	}
	if id, err := t.test.ID(args); err == nil {
		res.ID = id
	}

	if t.flags.Has(SKIP) {
		res.Status = Skip
		t.report(res)
		return res
	}

	if t.flags.Has(TE) {
		t.startSpan()
	}

	var err error
	if err = t.ctx.Err(); err == nil {
		err = t.call(args)
	}
	if cerr := t.runCleanups(); cerr != nil {
		err = multierror.Append(err, cerr).ErrorOrNil()
	}

	t.mu.Lock()
	status := worse(statusOf(err), t.worst)
	t.mu.Unlock()
	if status.Failed() && err == nil {
		err = ErrChildFailed.New(t.path)
	}

	if t.flags.Has(XFAIL) {
		if status.Failed() {
			status = XFail
		} else {
			status = XOK
		}
	}

	res.Status = status
	res.Err = err
	if err != nil {
		res.Message = err.Error()
	}
	res.Duration = time.Since(res.Start)

	t.finishSpan(res)
	t.report(res)
	return res
}

func (t *T) call(args Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPanic.New(t.path, r)
		}
	}()
	return t.test.Func(t, args)
}

func (t *T) runCleanups() error {
	t.mu.Lock()
	cleanups := t.cleanups
	t.cleanups = nil
	t.mu.Unlock()

	var result *multierror.Error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := t.safeCleanup(cleanups[i]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (t *T) safeCleanup(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPanic.New(t.path+" (cleanup)", r)
		}
	}()
	return fn()
}

func (t *T) startSpan() {
	var opts []opentracing.StartSpanOption
	if parent := opentracing.SpanFromContext(t.ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	opts = append(opts, opentracing.Tags{
		"test.path": t.path,
		"test.kind": t.test.Kind.String(),
	})

	t.span = t.tracer.StartSpan(spanName(t), opts...)
	t.ctx = opentracing.ContextWithSpan(t.ctx, t.span)
}

func spanName(t *T) string {
	return strings.ToLower(t.test.Kind.String()) + " " + t.test.Name
}

func (t *T) finishSpan(res *Result) {
	if t.span == nil {
		return
	}
	t.span.SetTag("test.status", res.Status.String())
	if res.Status.Failed() {
		ext.Error.Set(t.span, true)
		t.span.LogKV("event", "error", "message", res.Message)
	}
	t.span.Finish()
}

func (t *T) report(res *Result) {
	t.reporter.Report(*res)
}
