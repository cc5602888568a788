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

// Package rbacsuite runs the RBAC privilege tests against a cluster.
package rbacsuite

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/config"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/helper"
	"github.com/dolthub/rbac-suite/rbac/tests/privileges"
)

// Runner runs a registered feature against the configured cluster.
type Runner struct {
	Config *config.Config
	Logger *logrus.Logger
	// Path of the feature to run. Defaults to the privileges feature.
	Path string
}

// Report is the outcome of a run.
type Report struct {
	RunID   string
	Result  *flow.Result
	Summary flow.Summary
	Results []flow.Result
}

// NewRunner creates a runner of the privileges feature.
func NewRunner(cfg *config.Config, l *logrus.Logger) *Runner {
	return &Runner{Config: cfg, Logger: l, Path: privileges.Path}
}

// Run runs the feature and reports every result to the log, the metrics
// file and the result store when configured. The returned error is the
// feature error, combined with any error writing the outputs.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	test, err := flow.Load(r.Path, privileges.Attr)
	if err != nil {
		return nil, err
	}

	c, err := r.Config.NewCluster()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if sc, ok := c.(*cluster.SQLCluster); ok {
		if err := sc.Ping(ctx); err != nil {
			return nil, err
		}
	}

	tracer, closer, err := r.Config.Tracer()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	report := &Report{RunID: uuid.NewV4().String()}
	log := r.Logger.WithField("run", report.RunID)

	collector := flow.NewCollector()
	reporters := flow.Reporters{collector, flow.NewLogReporter(r.Logger)}

	registry := prometheus.NewRegistry()
	metrics, err := flow.NewMetricsReporter(registry)
	if err != nil {
		return nil, err
	}
	reporters = append(reporters, metrics)

	var store *flow.ResultStore
	if r.Config.Results.Path != "" {
		if store, err = flow.OpenResultStore(r.Config.Results.Path, report.RunID); err != nil {
			return nil, err
		}
		defer store.Close()
		reporters = append(reporters, store)
	}

	log.WithFields(logrus.Fields{
		"feature":  r.Path,
		"cluster":  c.Name(),
		"nodes":    c.Nodes(),
		"simulate": r.Config.Simulate,
	}).Info("starting run")

	ctx = helper.WithCluster(ctx, cluster.NewAudit(c, cluster.NewAuditLog(r.Logger)))
	args := flow.Args{privileges.PoolSizeArg: r.Config.Pool.Size}
	res, runErr := flow.Run(ctx, flow.Feature(test), args,
		flow.WithReporter(reporters),
		flow.WithLogger(log),
		flow.WithTracer(tracer),
	)

	report.Result = res
	report.Results = collector.Results()
	report.Summary = collector.Summary(flow.KindFeature)
	log.WithField("summary", report.Summary.String()).Info("run finished")

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, runErr)
	}
	if r.Config.Metrics.Path != "" {
		if err := prometheus.WriteToTextfile(r.Config.Metrics.Path, registry); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if store != nil && store.Err() != nil {
		result = multierror.Append(result, store.Err())
	}
	return report, result.ErrorOrNil()
}
