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
	"github.com/sirupsen/logrus"
)

// Reporter receives the result of every test when it ends. Reporters are
// called concurrently by tests running on a pool.
type Reporter interface {
	Report(res Result)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(res Result)

// Report implements the Reporter interface.
func (f ReporterFunc) Report(res Result) { f(res) }

// Reporters fans results out to several reporters.
type Reporters []Reporter

// Report implements the Reporter interface.
func (rs Reporters) Report(res Result) {
	for _, r := range rs {
		r.Report(res)
	}
}

type nopReporter struct{}

func (nopReporter) Report(Result) {}

// LogReporter logs results to a logrus.Logger.
type LogReporter struct {
	log *logrus.Entry
}

// NewLogReporter creates a reporter that logs to l.
func NewLogReporter(l *logrus.Logger) *LogReporter {
	return &LogReporter{log: l.WithField("system", "flow")}
}

const resultLogMessage = "test finished"

// Report implements the Reporter interface. Steps are logged at debug level,
// failures at error level.
func (r *LogReporter) Report(res Result) {
	fields := logrus.Fields{
		"test":     res.Path,
		"kind":     res.Kind.String(),
		"status":   res.Status.String(),
		"duration": res.Duration,
	}
	if res.Err != nil {
		fields["err"] = res.Err
	}

	entry := r.log.WithFields(fields)
	switch {
	case res.Status.Failed() && res.Kind != KindStep:
		entry.Error(resultLogMessage)
	case res.Kind == KindStep:
		entry.Debug(resultLogMessage)
	default:
		entry.Info(resultLogMessage)
	}
}
