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

package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/spf13/cast"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
	"gopkg.in/src-d/go-errors.v1"
)

const (
	// environment variable names
	envServiceName            = "JAEGER_SERVICE_NAME"
	envDisabled               = "JAEGER_DISABLED"
	envRPCMetrics             = "JAEGER_RPC_METRICS"
	envTags                   = "JAEGER_TAGS"
	envSamplerType            = "JAEGER_SAMPLER_TYPE"
	envSamplerParam           = "JAEGER_SAMPLER_PARAM"
	envSamplerManagerHostPort = "JAEGER_SAMPLER_MANAGER_HOST_PORT"
	envSamplerRefreshInterval = "JAEGER_SAMPLER_REFRESH_INTERVAL"
	envReporterMaxQueueSize   = "JAEGER_REPORTER_MAX_QUEUE_SIZE"
	envReporterFlushInterval  = "JAEGER_REPORTER_FLUSH_INTERVAL"
	envReporterLogSpans       = "JAEGER_REPORTER_LOG_SPANS"
	envAgentHost              = "JAEGER_AGENT_HOST"
	envAgentPort              = "JAEGER_AGENT_PORT"

	defaultServiceName  = "rbac-privileges"
	defaultAgentHost    = "localhost"
	defaultAgentPort    = 6831
	defaultSamplerType  = jaeger.SamplerTypeConst
	defaultSamplerParam = 1
)

var (
	// ErrEnvVar is returned when a tracing environment variable cannot be
	// parsed.
	ErrEnvVar = errors.NewKind("cannot parse env var %s=%s")

	// ErrTracer is returned when the tracer cannot be created.
	ErrTracer = errors.NewKind("could not initialize jaeger tracer")
)

// Tracer creates a jaeger tracer configured from the JAEGER_* environment
// variables and installs it as the global opentracing tracer. Spans of
// tests run with the TE flag are reported through it. The returned closer
// flushes pending spans.
func (c *Config) Tracer() (opentracing.Tracer, io.Closer, error) {
	cfg := &jaegercfg.Configuration{
		ServiceName: defaultServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  defaultSamplerType,
			Param: defaultSamplerParam,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: fmt.Sprintf("%s:%d", defaultAgentHost, defaultAgentPort),
		},
	}

	if e := os.Getenv(envServiceName); e != "" {
		cfg.ServiceName = e
	}

	var err error
	if cfg.Disabled, err = envBool(envDisabled, false); err != nil {
		return nil, nil, err
	}
	if cfg.RPCMetrics, err = envBool(envRPCMetrics, false); err != nil {
		return nil, nil, err
	}
	if err := samplerFromEnv(cfg.Sampler); err != nil {
		return nil, nil, err
	}
	if err := reporterFromEnv(cfg.Reporter); err != nil {
		return nil, nil, err
	}

	opts := []jaegercfg.Option{
		jaegercfg.Metrics(metrics.NullFactory),
		jaegercfg.Logger(jaeger.NullLogger),
		jaegercfg.Tag("cluster", c.Cluster.Name),
		jaegercfg.Tag("simulate", c.Simulate),
	}
	for _, tag := range parseTags(os.Getenv(envTags)) {
		opts = append(opts, jaegercfg.Tag(tag.Key, tag.Value))
	}

	tracer, closer, err := cfg.NewTracer(opts...)
	if err != nil {
		return nil, nil, ErrTracer.Wrap(err)
	}
	opentracing.SetGlobalTracer(tracer)

	return tracer, closer, nil
}

func envBool(name string, def bool) (bool, error) {
	e := os.Getenv(name)
	if e == "" {
		return def, nil
	}
	v, err := cast.ToBoolE(e)
	if err != nil {
		return false, ErrEnvVar.Wrap(err, name, e)
	}
	return v, nil
}

func samplerFromEnv(sc *jaegercfg.SamplerConfig) error {
	if e := os.Getenv(envSamplerType); e != "" {
		sc.Type = e
	}
	if e := os.Getenv(envSamplerManagerHostPort); e != "" {
		sc.SamplingServerURL = e
	}

	if e := os.Getenv(envSamplerParam); e != "" {
		v, err := cast.ToFloat64E(e)
		if err != nil {
			return ErrEnvVar.Wrap(err, envSamplerParam, e)
		}
		sc.Param = v
	}

	if e := os.Getenv(envSamplerRefreshInterval); e != "" {
		v, err := cast.ToDurationE(e)
		if err != nil {
			return ErrEnvVar.Wrap(err, envSamplerRefreshInterval, e)
		}
		sc.SamplingRefreshInterval = v
	}
	return nil
}

func reporterFromEnv(rc *jaegercfg.ReporterConfig) error {
	if e := os.Getenv(envReporterMaxQueueSize); e != "" {
		v, err := cast.ToIntE(e)
		if err != nil {
			return ErrEnvVar.Wrap(err, envReporterMaxQueueSize, e)
		}
		rc.QueueSize = v
	}

	if e := os.Getenv(envReporterFlushInterval); e != "" {
		v, err := cast.ToDurationE(e)
		if err != nil {
			return ErrEnvVar.Wrap(err, envReporterFlushInterval, e)
		}
		rc.BufferFlushInterval = v
	}

	var err error
	if rc.LogSpans, err = envBool(envReporterLogSpans, false); err != nil {
		return err
	}

	host := defaultAgentHost
	if e := os.Getenv(envAgentHost); e != "" {
		host = e
	}
	port := defaultAgentPort
	if e := os.Getenv(envAgentPort); e != "" {
		v, err := cast.ToIntE(e)
		if err != nil {
			return ErrEnvVar.Wrap(err, envAgentPort, e)
		}
		port = v
	}
	rc.LocalAgentHostPort = fmt.Sprintf("%s:%d", host, port)

	return nil
}

// parseTags parses a comma separated list of key=value pairs. A value of
// the form ${VAR:default} is read from the environment variable VAR,
// falling back to default.
func parseTags(s string) []opentracing.Tag {
	var tags []opentracing.Tag
	for _, p := range strings.Split(s, ",") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k, v := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])

		if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
			ed := strings.SplitN(v[2:len(v)-1], ":", 2)
			v = os.Getenv(ed[0])
			if v == "" && len(ed) == 2 {
				v = ed[1]
			}
		}

		tags = append(tags, opentracing.Tag{Key: k, Value: v})
	}
	return tags
}
