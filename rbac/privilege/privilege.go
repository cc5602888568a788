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

// Package privilege describes the privileges exercised by the RBAC tests and
// the hierarchy between them: granting a privilege grants all of its
// descendants.
package privilege

import (
	"regexp"
	"sort"
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrUnknownPrivilege is returned when a privilege name is not in the
// catalog.
var ErrUnknownPrivilege = errors.NewKind("unknown privilege: %s")

const (
	All                 = "ALL"
	Show                = "SHOW"
	ShowTables          = "SHOW TABLES"
	Select              = "SELECT"
	Insert              = "INSERT"
	Alter               = "ALTER"
	AlterTable          = "ALTER TABLE"
	AlterUpdate         = "ALTER UPDATE"
	AlterDelete         = "ALTER DELETE"
	AlterColumn         = "ALTER COLUMN"
	AlterAddColumn      = "ALTER ADD COLUMN"
	AlterDropColumn     = "ALTER DROP COLUMN"
	AlterModifyColumn   = "ALTER MODIFY COLUMN"
	AlterCommentColumn  = "ALTER COMMENT COLUMN"
	AlterClearColumn    = "ALTER CLEAR COLUMN"
	AlterRenameColumn   = "ALTER RENAME COLUMN"
	AlterIndex          = "ALTER INDEX"
	AlterOrderBy        = "ALTER ORDER BY"
	AlterAddIndex       = "ALTER ADD INDEX"
	AlterDropIndex      = "ALTER DROP INDEX"
	AlterMaterializeIdx = "ALTER MATERIALIZE INDEX"
	AlterClearIndex     = "ALTER CLEAR INDEX"
	AlterConstraint     = "ALTER CONSTRAINT"
	AlterAddConstraint  = "ALTER ADD CONSTRAINT"
	AlterDropConstraint = "ALTER DROP CONSTRAINT"
	AlterTTL            = "ALTER TTL"
	AlterMaterializeTTL = "ALTER MATERIALIZE TTL"
	AlterSettings       = "ALTER SETTINGS"
	AlterFreeze         = "ALTER FREEZE PARTITION"
	AlterFetch          = "ALTER FETCH PARTITION"
	AlterMove           = "ALTER MOVE PARTITION"
)

// parents maps each privilege to the one directly above it.
var parents = map[string]string{
	Show:                All,
	ShowTables:          Show,
	Select:              All,
	Insert:              All,
	Alter:               All,
	AlterTable:          Alter,
	AlterUpdate:         AlterTable,
	AlterDelete:         AlterTable,
	AlterColumn:         AlterTable,
	AlterAddColumn:      AlterColumn,
	AlterDropColumn:     AlterColumn,
	AlterModifyColumn:   AlterColumn,
	AlterCommentColumn:  AlterColumn,
	AlterClearColumn:    AlterColumn,
	AlterRenameColumn:   AlterColumn,
	AlterIndex:          AlterTable,
	AlterOrderBy:        AlterIndex,
	AlterAddIndex:       AlterIndex,
	AlterDropIndex:      AlterIndex,
	AlterMaterializeIdx: AlterIndex,
	AlterClearIndex:     AlterIndex,
	AlterConstraint:     AlterTable,
	AlterAddConstraint:  AlterConstraint,
	AlterDropConstraint: AlterConstraint,
	AlterTTL:            AlterTable,
	AlterMaterializeTTL: AlterTable,
	AlterSettings:       AlterTable,
	AlterFreeze:         AlterTable,
	AlterFetch:          AlterTable,
	AlterMove:           AlterTable,
}

var aliases = map[string]string{
	"ALL PRIVILEGES":        All,
	"SHOW TABLE":            ShowTables,
	"UPDATE":                AlterUpdate,
	"DELETE":                AlterDelete,
	"ADD COLUMN":            AlterAddColumn,
	"DROP COLUMN":           AlterDropColumn,
	"MODIFY COLUMN":         AlterModifyColumn,
	"COMMENT COLUMN":        AlterCommentColumn,
	"CLEAR COLUMN":          AlterClearColumn,
	"RENAME COLUMN":         AlterRenameColumn,
	"INDEX":                 AlterIndex,
	"ALTER MODIFY ORDER BY": AlterOrderBy,
	"MODIFY ORDER BY":       AlterOrderBy,
	"ADD INDEX":             AlterAddIndex,
	"DROP INDEX":            AlterDropIndex,
	"MATERIALIZE INDEX":     AlterMaterializeIdx,
	"CLEAR INDEX":           AlterClearIndex,
	"CONSTRAINT":            AlterConstraint,
	"ADD CONSTRAINT":        AlterAddConstraint,
	"DROP CONSTRAINT":       AlterDropConstraint,
	"ALTER MODIFY TTL":      AlterTTL,
	"MODIFY TTL":            AlterTTL,
	"MATERIALIZE TTL":       AlterMaterializeTTL,
	"ALTER SETTING":         AlterSettings,
	"ALTER MODIFY SETTING":  AlterSettings,
	"MODIFY SETTING":        AlterSettings,
	"ALTER FREEZE":          AlterFreeze,
	"FREEZE PARTITION":      AlterFreeze,
	"ALTER FETCH":           AlterFetch,
	"FETCH PARTITION":       AlterFetch,
	"ALTER MOVE":            AlterMove,
	"ALTER MOVE PART":       AlterMove,
	"MOVE PARTITION":        AlterMove,
	"MOVE PART":             AlterMove,
}

var spaces = regexp.MustCompile(`\s+`)

// Normalize returns the canonical name of a privilege or alias.
func Normalize(name string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(spaces.ReplaceAllString(name, " ")))
	if a, ok := aliases[n]; ok {
		return a, nil
	}
	if _, ok := parents[n]; ok || n == All {
		return n, nil
	}
	return "", ErrUnknownPrivilege.New(name)
}

// Parse splits a comma separated privilege list and normalizes each entry.
func Parse(list string) ([]string, error) {
	var privs []string
	for _, p := range strings.Split(list, ",") {
		n, err := Normalize(p)
		if err != nil {
			return nil, err
		}
		privs = append(privs, n)
	}
	return privs, nil
}

// Ancestors returns the privileges above name, nearest first.
func Ancestors(name string) []string {
	var result []string
	for p, ok := parents[name]; ok; p, ok = parents[p] {
		result = append(result, p)
	}
	return result
}

// Children returns the privileges directly below name, sorted.
func Children(name string) []string {
	var result []string
	for c, p := range parents {
		if p == name {
			result = append(result, c)
		}
	}
	sort.Strings(result)
	return result
}

// Covers reports whether holding granted implies holding required. Both
// must be canonical names.
func Covers(granted, required string) bool {
	if granted == required {
		return true
	}
	for _, a := range Ancestors(required) {
		if a == granted {
			return true
		}
	}
	return false
}

// Subtract returns the privileges that remain from granted once revoked is
// taken away, expanding granted into its children where needed.
func Subtract(granted, revoked string) []string {
	if Covers(revoked, granted) {
		return nil
	}
	if !Covers(granted, revoked) {
		return []string{granted}
	}
	var result []string
	for _, c := range Children(granted) {
		result = append(result, Subtract(c, revoked)...)
	}
	return result
}
