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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	rbacsuite "github.com/dolthub/rbac-suite"
	"github.com/dolthub/rbac-suite/config"
	"github.com/dolthub/rbac-suite/flow"
	"github.com/dolthub/rbac-suite/rbac/tests/privileges"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "rbac-privileges",
		Short:         "Run the RBAC privilege tests against a cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newRunCommand(), newListCommand())
	return root
}

type runOptions struct {
	config      string
	simulate    bool
	poolSize    int
	logLevel    string
	logFile     string
	results     string
	metricsFile string
	only        string
}

func (o *runOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.config, "config", "c", "", "configuration file (.yaml, .yml or .toml)")
	fs.BoolVar(&o.simulate, "simulate", false, "run against an in-memory simulated cluster")
	fs.IntVar(&o.poolSize, "pool-size", 0, "number of scenarios run concurrently")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&o.logFile, "log-file", "", "copy the log to a rotating file")
	fs.StringVar(&o.results, "results", "", "store results in this bolt database")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write prometheus metrics to this file")
	fs.StringVar(&o.only, "only", "", "run a single registered feature instead of "+privileges.Path)
}

// load reads the configuration file and applies the flags that were set.
func (o *runOptions) load(fs *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if o.config != "" {
		var err error
		if cfg, err = config.Load(o.config); err != nil {
			return nil, err
		}
	}

	if fs.Changed("simulate") {
		cfg.Simulate = o.simulate
	}
	if fs.Changed("pool-size") {
		if o.poolSize < 1 {
			return nil, flow.ErrInvalidPoolSize.New(o.poolSize)
		}
		cfg.Pool.Size = o.poolSize
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if fs.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if fs.Changed("results") {
		cfg.Results.Path = o.results
	}
	if fs.Changed("metrics-file") {
		cfg.Metrics.Path = o.metricsFile
	}
	return cfg, nil
}

func newRunCommand() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the privileges feature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, o.only)
		},
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, only string) error {
	logger := logrus.StandardLogger()
	closer, err := rbacsuite.ConfigureLogging(logger, cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			logInterrupted(logger)
			cancel()
		case <-ctx.Done():
		}
	}()

	r := rbacsuite.NewRunner(cfg, logger)
	if only != "" {
		r.Path = only
	}

	report, err := r.Run(ctx)
	if report != nil {
		printReport(out, report)
	}
	return err
}

func logInterrupted(l *logrus.Logger) {
	for _, pool := range flow.ActivePools() {
		for _, p := range pool.Processes() {
			l.WithFields(logrus.Fields{
				"test":    p.Path,
				"kind":    p.Kind.String(),
				"started": p.StartedAt,
			}).Warn("interrupted while running")
		}
		pool.Kill()
	}
}

func printReport(out io.Writer, report *rbacsuite.Report) {
	fmt.Fprintf(out, "run %s: %s\n", report.RunID, report.Summary)
	for _, res := range report.Summary.Failed {
		fmt.Fprintf(out, "  %s %s: %s\n", res.Status, res.Path, firstLine(res.Message))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered tests",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, key := range flow.Registered() {
				i := strings.LastIndex(key, ".")
				test, err := flow.Load(key[:i], key[i+1:])
				if err != nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, test.Description)
			}
		},
	}
}
