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

// Package privileges holds the RBAC privilege scenarios and the feature
// that runs all of them concurrently.
package privileges

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"

	"github.com/dolthub/rbac-suite/flow"

	// registers the ALTER scenarios
	_ "github.com/dolthub/rbac-suite/rbac/tests/privileges/alter"
)

const (
	// Path is the identifier of the privileges feature.
	Path = "rbac.tests.privileges"
	// Attr is the attribute every scenario is registered under.
	Attr = "feature"
	// PoolSize is the number of scenarios run concurrently.
	PoolSize = 16
	// PoolSizeArg is the feature argument overriding PoolSize.
	PoolSizeArg = "pool_size"
)

// Scenarios are the identifiers run by the feature, in submission order.
var Scenarios = []string{
	Path + ".insert",
	Path + ".select",
	Path + ".show_tables",
	Path + ".public_tables",
	Path + ".distributed_table",
	Path + ".alter.alter_column",
	Path + ".alter.alter_index",
	Path + ".alter.alter_constraint",
	Path + ".alter.alter_ttl",
	Path + ".alter.alter_settings",
	Path + ".alter.alter_update",
	Path + ".alter.alter_delete",
	Path + ".alter.alter_freeze",
	Path + ".alter.alter_fetch",
	Path + ".alter.alter_move",
	Path + ".grant_option",
}

func init() {
	flow.Register(Path, Attr, feature, flow.WithDescription("RBAC privileges"))
}

// Scheduler is a Submitter that is closed once every test was submitted
// and joined.
type Scheduler interface {
	flow.Submitter
	Close()
}

var newScheduler = func(size int) (Scheduler, error) {
	pool, err := flow.NewPool(size)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func feature(t *flow.T, args flow.Args) error {
	size := PoolSize
	if v, ok := args[PoolSizeArg]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		size = n
	}

	pool, err := newScheduler(size)
	if err != nil {
		return err
	}
	return RunScenarios(t, pool, Scenarios)
}

// RunScenarios loads each path and submits it to pool as a traced feature
// with no arguments. Every submitted task is joined and then the pool is
// closed, whatever the outcome. A load or submit error stops the
// submission of the remaining paths and is returned along with the
// failures of the tasks already submitted.
func RunScenarios(t *flow.T, pool Scheduler, paths []string) (err error) {
	var tasks []*flow.Task
	defer pool.Close()
	defer func() {
		if jerr := flow.Join(tasks); jerr != nil {
			err = multierror.Append(err, jerr).ErrorOrNil()
		}
	}()

	for _, path := range paths {
		test, lerr := flow.Load(path, Attr)
		if lerr != nil {
			return lerr
		}

		scenario := flow.Feature(test, flow.WithFlags(flow.TE))
		if serr := flow.RunScenario(t, pool, &tasks, scenario, flow.Args{}); serr != nil {
			return serr
		}
	}
	return nil
}
