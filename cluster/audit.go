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

package cluster

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"
)

// AuditMethod is called to log the audit trail of queries.
type AuditMethod interface {
	// Query logs a query execution.
	Query(node string, opts QueryOptions, query string, d time.Duration, err error)
}

// NewAudit creates a wrapped Cluster whose nodes send audit trails to the
// specified method.
func NewAudit(c Cluster, method AuditMethod) Cluster {
	return &Audit{Cluster: c, method: method}
}

// Audit is a Cluster proxy that sends audit trails of every query to the
// specified AuditMethod.
type Audit struct {
	Cluster
	method AuditMethod
}

// Node implements the Cluster interface.
func (a *Audit) Node(name string) (Node, error) {
	n, err := a.Cluster.Node(name)
	if err != nil {
		return nil, err
	}
	return &auditNode{Node: n, method: a.method}, nil
}

type auditNode struct {
	Node
	method AuditMethod
}

func (n *auditNode) Query(ctx context.Context, query string, opts ...QueryOption) (*Result, error) {
	start := time.Now()
	res, err := n.Node.Query(ctx, query, opts...)
	n.method.Query(n.Name(), NewQueryOptions(opts...), query, time.Since(start), err)
	return res, err
}

// NewAuditLog creates a new AuditMethod that logs to a logrus.Logger.
func NewAuditLog(l *logrus.Logger) AuditMethod {
	la := l.WithField("system", "audit")

	return &AuditLog{
		log: la,
	}
}

const auditLogMessage = "audit trail"

// AuditLog logs audit trails to a logrus.Logger.
type AuditLog struct {
	log *logrus.Entry
}

// Query implements AuditMethod interface. Queries are logged at debug
// level, failed ones at info level.
func (a *AuditLog) Query(node string, opts QueryOptions, query string, d time.Duration, err error) {
	fields := logrus.Fields{
		"action":    "query",
		"node":      node,
		"user":      opts.User,
		"statement": sqlparser.StmtType(sqlparser.Preview(query)),
		"query":     query,
		"duration":  d,
		"success":   true,
	}

	if err != nil {
		fields["success"] = false
		fields["denied"] = IsPrivilegeError(err)
		fields["err"] = err
		a.log.WithFields(fields).Info(auditLogMessage)
		return
	}

	a.log.WithFields(fields).Debug(auditLogMessage)
}
