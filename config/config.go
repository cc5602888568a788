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

// Package config loads the settings of a test run.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
	"gopkg.in/src-d/go-errors.v1"
	"gopkg.in/yaml.v2"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/cluster/simulated"
)

const (
	// DefaultClusterName is the cluster referenced by ON CLUSTER clauses and
	// Distributed tables.
	DefaultClusterName = "sharded_cluster"
	// DefaultPoolSize is the number of scenarios run concurrently.
	DefaultPoolSize = 16
	// DefaultUser is the administrative user of the cluster.
	DefaultUser = "default"
	// DefaultDatabase is selected on every connection.
	DefaultDatabase = "default"
	// DefaultTimeout bounds connection establishment.
	DefaultTimeout = "10s"
	// DefaultPort is the MySQL compatible port of a node.
	DefaultPort = "9004"
)

var (
	// ErrUnsupportedFormat is returned for configuration files with an
	// unknown extension.
	ErrUnsupportedFormat = errors.NewKind("unsupported config format: %s")

	// ErrInvalidConfig is returned when a loaded configuration is not valid.
	ErrInvalidConfig = errors.NewKind("invalid config: %s")

	// ErrReadConfig wraps errors reading or decoding a configuration file.
	ErrReadConfig = errors.NewKind("cannot read config %s")
)

// Node is a server of the cluster.
type Node struct {
	Name    string `yaml:"name" toml:"name"`
	Address string `yaml:"address" toml:"address"`
}

// Cluster holds the connection settings shared by every node.
type Cluster struct {
	Name     string `yaml:"name" toml:"name"`
	Nodes    []Node `yaml:"nodes" toml:"nodes"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	Database string `yaml:"database" toml:"database"`
	// Timeout is a duration such as "5s".
	Timeout string `yaml:"timeout" toml:"timeout"`
}

// Pool configures the worker pool scenarios are submitted to.
type Pool struct {
	Size int `yaml:"size" toml:"size"`
}

// Log configures logging output.
type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// File enables rotating file output when set.
	File string `yaml:"file" toml:"file"`
}

// Results configures the persistent result store.
type Results struct {
	Path string `yaml:"path" toml:"path"`
}

// Metrics configures the metrics text file written after a run.
type Metrics struct {
	Path string `yaml:"path" toml:"path"`
}

// Config is the configuration of a test run.
type Config struct {
	Cluster  Cluster `yaml:"cluster" toml:"cluster"`
	Pool     Pool    `yaml:"pool" toml:"pool"`
	Log      Log     `yaml:"log" toml:"log"`
	Results  Results `yaml:"results" toml:"results"`
	Metrics  Metrics `yaml:"metrics" toml:"metrics"`
	Simulate bool    `yaml:"simulate" toml:"simulate"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	// defaults never fail validation
	_ = c.validateSetDefaults()
	return c
}

// Load reads a YAML or TOML configuration file, chosen by extension.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadConfig.Wrap(err, path)
	}

	c := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(b, c)
	case ".toml":
		_, err = toml.Decode(string(b), c)
	default:
		return nil, ErrUnsupportedFormat.New(ext)
	}
	if err != nil {
		return nil, ErrReadConfig.Wrap(err, path)
	}

	if err := c.validateSetDefaults(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validateSetDefaults() error {
	if c.Cluster.Name == "" {
		c.Cluster.Name = DefaultClusterName
	}
	if c.Cluster.User == "" {
		c.Cluster.User = DefaultUser
	}
	if c.Cluster.Database == "" {
		c.Cluster.Database = DefaultDatabase
	}
	if c.Cluster.Timeout == "" {
		c.Cluster.Timeout = DefaultTimeout
	}
	if _, err := cast.ToDurationE(c.Cluster.Timeout); err != nil {
		return ErrInvalidConfig.Wrap(err, "cluster.timeout")
	}

	if len(c.Cluster.Nodes) == 0 {
		for _, n := range simulated.DefaultNodes {
			c.Cluster.Nodes = append(c.Cluster.Nodes, Node{Name: n})
		}
	}
	seen := make(map[string]bool, len(c.Cluster.Nodes))
	for i := range c.Cluster.Nodes {
		n := &c.Cluster.Nodes[i]
		if n.Name == "" {
			return ErrInvalidConfig.New("cluster.nodes: node without name")
		}
		if seen[n.Name] {
			return ErrInvalidConfig.New("cluster.nodes: duplicate node " + n.Name)
		}
		seen[n.Name] = true
		if n.Address == "" {
			n.Address = n.Name + ":" + DefaultPort
		}
	}

	if c.Pool.Size == 0 {
		c.Pool.Size = DefaultPoolSize
	}
	if c.Pool.Size < 0 {
		return ErrInvalidConfig.New("pool.size must be positive")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return ErrInvalidConfig.New("log.format must be text or json")
	}

	return nil
}

// Timeout returns the connection timeout.
func (c *Config) Timeout() time.Duration {
	return cast.ToDuration(c.Cluster.Timeout)
}

// NodeConfigs returns the connection settings of every node.
func (c *Config) NodeConfigs() []cluster.NodeConfig {
	nodes := make([]cluster.NodeConfig, len(c.Cluster.Nodes))
	for i, n := range c.Cluster.Nodes {
		nodes[i] = cluster.NodeConfig{
			Name:     n.Name,
			Address:  n.Address,
			User:     c.Cluster.User,
			Password: c.Cluster.Password,
			Database: c.Cluster.Database,
			Timeout:  c.Timeout(),
		}
	}
	return nodes
}

// NewCluster connects to the configured cluster, or creates a simulated
// one with the same node names when Simulate is set.
func (c *Config) NewCluster() (cluster.Cluster, error) {
	if c.Simulate {
		names := make([]string, len(c.Cluster.Nodes))
		for i, n := range c.Cluster.Nodes {
			names[i] = n.Name
		}
		return simulated.New(c.Cluster.Name, names...), nil
	}
	return cluster.NewSQLCluster(c.Cluster.Name, c.NodeConfigs())
}
