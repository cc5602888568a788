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

package simulated

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dolthub/rbac-suite/cluster"
	"github.com/dolthub/rbac-suite/rbac/privilege"
)

// DefaultUser is the administrative user of a simulated server.
const DefaultUser = "default"

const defaultDatabase = "default"

type table struct {
	engine string
	// underlying is the local table of a Distributed table.
	underlying *object
	rows       []string
}

// publicTables can be read by any user without grants.
var publicTables = map[string][][]string{
	"one":          {{"0"}},
	"numbers":      nil,
	"contributors": {{"Alexey Milovidov"}, {"Vitaly Baranov"}},
	"functions":    {{"count"}, {"sum"}, {"now"}},
}

// Server is the state shared by the nodes of a simulated cluster: users,
// roles, grants and tables. It is safe for concurrent use.
type Server struct {
	mu     sync.Mutex
	access *access
	tables map[object]*table
}

// NewServer creates an empty server with DefaultUser as superuser.
func NewServer() *Server {
	return &Server{
		access: newAccess(DefaultUser),
		tables: make(map[object]*table),
	}
}

type handler struct {
	re *regexp.Regexp
	fn func(s *Server, user string, m []string) (*cluster.Result, error)
}

const tableName = `((?:\w+\.)?\w+)`

var handlers = []handler{
	{re(`^CREATE (USER|ROLE) (IF NOT EXISTS )?(\w+)(?: ON CLUSTER \S+)?(?: .*)?$`), (*Server).createPrincipal},
	{re(`^DROP (USER|ROLE) (IF EXISTS )?([\w\s,]+?)(?: ON CLUSTER \S+)?$`), (*Server).dropPrincipals},
	{re(`^CREATE TABLE (IF NOT EXISTS )?` + tableName + `(?: ON CLUSTER \S+)?.*?ENGINE\s*=\s*(\w+)(.*)$`), (*Server).createTable},
	{re(`^DROP TABLE (IF EXISTS )?` + tableName + `(?: ON CLUSTER \S+)?(?: SYNC)?$`), (*Server).dropTable},
	{re(`^GRANT (.+?) ON (\S+) TO (.+?)( WITH GRANT OPTION)?$`), (*Server).grant},
	{re(`^GRANT ([\w\s,]+) TO ([\w\s,]+)$`), (*Server).grantRoles},
	{re(`^REVOKE (GRANT OPTION FOR )?(.+?) ON (\S+) FROM (.+)$`), (*Server).revoke},
	{re(`^REVOKE ([\w\s,]+) FROM ([\w\s,]+)$`), (*Server).revokeRoles},
	{re(`^SELECT (.+?) FROM ` + tableName + `(?:\s+(.*))?$`), (*Server).selectFrom},
	{re(`^SELECT (.+)$`), (*Server).selectConst},
	{re(`^INSERT INTO ` + tableName + `\s*(?:\([^)]*\))?\s*(?:VALUES\s*(.*))?$`), (*Server).insert},
	{re(`^SHOW TABLES(?: FROM (\w+))?(?: LIKE '([^']*)')?$`), (*Server).showTables},
	{re(`^EXISTS (?:TABLE )?` + tableName + `$`), (*Server).exists},
	{re(`^CHECK TABLE ` + tableName + `$`), (*Server).checkTable},
	{re(`^ALTER TABLE ` + tableName + `(?: ON CLUSTER \S+)? (.+)$`), (*Server).alter},
	{re(`^(?:USE|SET) .+$`), func(*Server, string, []string) (*cluster.Result, error) { return &cluster.Result{}, nil }},
}

func re(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + expr)
}

var whitespace = regexp.MustCompile(`\s+`)

// Exec runs query as user.
func (s *Server) Exec(user, query string) (*cluster.Result, error) {
	q := strings.TrimSuffix(strings.TrimSpace(whitespace.ReplaceAllString(query, " ")), ";")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.access.users[user]; !ok {
		return nil, exception(codeAuthenticationFailed, "%s: Authentication failed: password is incorrect or there is no user with such name", user)
	}

	for _, h := range handlers {
		if m := h.re.FindStringSubmatch(q); m != nil {
			return h.fn(s, user, m)
		}
	}
	return nil, exception(codeSyntaxError, "Syntax error: failed at position 1: %s", q)
}

func parseTable(n string) object {
	if i := strings.Index(n, "."); i >= 0 {
		return object{db: n[:i], table: n[i+1:]}
	}
	return object{db: defaultDatabase, table: n}
}

func parseObject(n string) object {
	switch {
	case n == "*":
		return object{db: defaultDatabase, table: wildcard}
	default:
		return parseTable(n)
	}
}

func splitNames(list string) []string {
	var names []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func empty() (*cluster.Result, error) {
	return &cluster.Result{}, nil
}

func (s *Server) requireSuperuser(user, priv string, on object) error {
	if user != s.access.superuser {
		return accessDenied(user, priv, on, false)
	}
	return nil
}

func (s *Server) createPrincipal(user string, m []string) (*cluster.Result, error) {
	kind, ifNotExists, n := strings.ToUpper(m[1]), m[2] != "", m[3]
	if err := s.requireSuperuser(user, "CREATE "+kind, object{db: wildcard, table: wildcard}); err != nil {
		return nil, err
	}

	if _, exists := s.access.users[n]; exists {
		if ifNotExists {
			return empty()
		}
		return nil, exception(codeAccessEntityExists, "user `%s`: cannot insert because user `%s` already exists", n, n)
	}
	if _, exists := s.access.roles[n]; exists {
		if ifNotExists {
			return empty()
		}
		return nil, exception(codeAccessEntityExists, "role `%s`: cannot insert because role `%s` already exists", n, n)
	}

	if kind == "USER" {
		s.access.users[n] = newPrincipal(n)
	} else {
		s.access.roles[n] = newPrincipal(n)
	}
	return empty()
}

func (s *Server) dropPrincipals(user string, m []string) (*cluster.Result, error) {
	kind, ifExists := strings.ToUpper(m[1]), m[2] != ""
	if err := s.requireSuperuser(user, "DROP "+kind, object{db: wildcard, table: wildcard}); err != nil {
		return nil, err
	}

	for _, n := range splitNames(m[3]) {
		if kind == "USER" {
			if _, exists := s.access.users[n]; !exists || n == s.access.superuser {
				if ifExists {
					continue
				}
				return nil, exception(codeUnknownUser, "There is no user `%s` in user directories", n)
			}
			delete(s.access.users, n)
			continue
		}

		if _, exists := s.access.roles[n]; !exists {
			if ifExists {
				continue
			}
			return nil, exception(codeUnknownRole, "There is no role `%s` in user directories", n)
		}
		delete(s.access.roles, n)
		for _, u := range s.access.users {
			delete(u.roles, n)
		}
	}
	return empty()
}

var distributedArgs = re(`^\s*\(\s*'?(\w+)'?\s*,\s*'?(\w+)'?\s*,\s*'?(\w+)'?`)

func (s *Server) createTable(user string, m []string) (*cluster.Result, error) {
	ifNotExists, obj, engine := m[1] != "", parseTable(m[2]), m[3]
	if err := s.requireSuperuser(user, "CREATE TABLE", obj); err != nil {
		return nil, err
	}

	if _, exists := s.tables[obj]; exists || obj.db == "system" {
		if ifNotExists {
			return empty()
		}
		return nil, exception(codeTableAlreadyExists, "Table %s already exists.", obj)
	}

	t := &table{engine: engine}
	if strings.EqualFold(engine, "Distributed") {
		args := distributedArgs.FindStringSubmatch(m[4])
		if args == nil {
			return nil, exception(codeSyntaxError, "Storage Distributed requires cluster, database and table arguments")
		}
		t.underlying = &object{db: args[2], table: args[3]}
	}

	s.tables[obj] = t
	return empty()
}

func (s *Server) dropTable(user string, m []string) (*cluster.Result, error) {
	ifExists, obj := m[1] != "", parseTable(m[2])
	if err := s.requireSuperuser(user, "DROP TABLE", obj); err != nil {
		return nil, err
	}

	if _, exists := s.tables[obj]; !exists {
		if ifExists {
			return empty()
		}
		return nil, exception(codeUnknownTable, "Table %s doesn't exist.", obj)
	}
	delete(s.tables, obj)
	return empty()
}

func (s *Server) grant(user string, m []string) (*cluster.Result, error) {
	privs, err := privilege.Parse(m[1])
	if err != nil {
		return nil, exception(codeSyntaxError, "%s", err)
	}
	on := parseObject(m[2])
	grantOption := m[4] != ""

	for _, p := range privs {
		if !s.access.allowed(user, p, on, true) {
			return nil, accessDenied(user, p, on, true)
		}
	}

	for _, n := range splitNames(m[3]) {
		p, err := s.access.principal(n)
		if err != nil {
			return nil, err
		}
		for _, priv := range privs {
			p.grant(priv, on, grantOption)
		}
	}
	return empty()
}

func (s *Server) revoke(user string, m []string) (*cluster.Result, error) {
	grantOptionOnly := m[1] != ""
	privs, err := privilege.Parse(m[2])
	if err != nil {
		return nil, exception(codeSyntaxError, "%s", err)
	}
	on := parseObject(m[3])

	for _, p := range privs {
		if !s.access.allowed(user, p, on, true) {
			return nil, accessDenied(user, p, on, true)
		}
	}

	for _, n := range splitNames(m[4]) {
		p, err := s.access.principal(n)
		if err != nil {
			return nil, err
		}
		for _, priv := range privs {
			p.revoke(priv, on, grantOptionOnly)
		}
	}
	return empty()
}

func (s *Server) roleGrantees(user string, roles, grantees string) ([]*principal, []string, error) {
	if err := s.requireSuperuser(user, "ROLE ADMIN", object{db: wildcard, table: wildcard}); err != nil {
		return nil, nil, err
	}

	names := splitNames(roles)
	for _, r := range names {
		if _, exists := s.access.roles[r]; !exists {
			return nil, nil, exception(codeUnknownRole, "There is no role `%s` in user directories", r)
		}
	}

	var targets []*principal
	for _, n := range splitNames(grantees) {
		u, exists := s.access.users[n]
		if !exists {
			return nil, nil, exception(codeUnknownUser, "There is no user `%s` in user directories", n)
		}
		targets = append(targets, u)
	}
	return targets, names, nil
}

func (s *Server) grantRoles(user string, m []string) (*cluster.Result, error) {
	targets, roles, err := s.roleGrantees(user, m[1], m[2])
	if err != nil {
		return nil, err
	}
	for _, u := range targets {
		for _, r := range roles {
			u.roles[r] = true
		}
	}
	return empty()
}

func (s *Server) revokeRoles(user string, m []string) (*cluster.Result, error) {
	targets, roles, err := s.roleGrantees(user, m[1], m[2])
	if err != nil {
		return nil, err
	}
	for _, u := range targets {
		for _, r := range roles {
			delete(u.roles, r)
		}
	}
	return empty()
}

// check verifies that user holds priv on the table and, for Distributed
// tables, on the underlying table too. It returns the table, or nil if it
// does not exist.
func (s *Server) check(user, priv string, obj object) (*table, error) {
	if !s.access.allowed(user, priv, obj, false) {
		return nil, accessDenied(user, priv, obj, false)
	}

	t, exists := s.tables[obj]
	if !exists {
		return nil, nil
	}
	if t.underlying != nil && !s.access.allowed(user, priv, *t.underlying, false) {
		return nil, accessDenied(user, priv, *t.underlying, false)
	}
	return t, nil
}

func (s *Server) selectFrom(user string, m []string) (*cluster.Result, error) {
	expr, obj, rest := strings.TrimSpace(m[1]), parseTable(m[2]), m[3]

	if obj.db == "system" {
		if rows, public := publicTables[obj.table]; public {
			return selectPublic(obj.table, rows, rest), nil
		}
		if !s.access.allowed(user, privilege.Select, obj, false) {
			return nil, accessDenied(user, privilege.Select, obj, false)
		}
		return &cluster.Result{Columns: []string{expr}}, nil
	}

	t, err := s.check(user, privilege.Select, obj)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, exception(codeUnknownTable, "Table %s doesn't exist.", obj)
	}
	if t.underlying != nil {
		if t = s.tables[*t.underlying]; t == nil {
			return nil, exception(codeUnknownTable, "Table %s doesn't exist.", *s.tables[obj].underlying)
		}
	}

	if strings.EqualFold(expr, "count()") {
		return &cluster.Result{Columns: []string{expr}, Rows: [][]string{{strconv.Itoa(len(t.rows))}}}, nil
	}

	res := &cluster.Result{Columns: []string{expr}}
	for _, r := range t.rows {
		res.Rows = append(res.Rows, []string{r})
	}
	return res, nil
}

var limit = re(`LIMIT (\d+)`)

func selectPublic(name string, rows [][]string, rest string) *cluster.Result {
	n := -1
	if m := limit.FindStringSubmatch(rest); m != nil {
		n, _ = strconv.Atoi(m[1])
	}

	res := &cluster.Result{Columns: []string{name}}
	if name == "numbers" {
		if n < 0 {
			n = 10
		}
		for i := 0; i < n; i++ {
			res.Rows = append(res.Rows, []string{strconv.Itoa(i)})
		}
		return res
	}

	for i, r := range rows {
		if n >= 0 && i >= n {
			break
		}
		res.Rows = append(res.Rows, r)
	}
	return res
}

func (s *Server) selectConst(_ string, m []string) (*cluster.Result, error) {
	expr := strings.TrimSpace(m[1])
	return &cluster.Result{Columns: []string{expr}, Rows: [][]string{{expr}}}, nil
}

var tuple = regexp.MustCompile(`\(([^)]*)\)`)

func (s *Server) insert(user string, m []string) (*cluster.Result, error) {
	obj := parseTable(m[1])
	t, err := s.check(user, privilege.Insert, obj)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, exception(codeUnknownTable, "Table %s doesn't exist.", obj)
	}
	if t.underlying != nil {
		if t = s.tables[*t.underlying]; t == nil {
			return nil, exception(codeUnknownTable, "Table %s doesn't exist.", *s.tables[obj].underlying)
		}
	}

	for _, v := range tuple.FindAllStringSubmatch(m[2], -1) {
		t.rows = append(t.rows, strings.TrimSpace(v[1]))
	}
	return empty()
}

func likePattern(p string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range p {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

func (s *Server) showTables(user string, m []string) (*cluster.Result, error) {
	db := m[1]
	if db == "" {
		db = defaultDatabase
	}

	var like *regexp.Regexp
	if m[2] != "" {
		like = likePattern(m[2])
	}

	var names []string
	for obj := range s.tables {
		if obj.db != db || !s.access.visible(user, obj) {
			continue
		}
		if like != nil && !like.MatchString(obj.table) {
			continue
		}
		names = append(names, obj.table)
	}
	sort.Strings(names)

	res := &cluster.Result{Columns: []string{"name"}}
	for _, n := range names {
		res.Rows = append(res.Rows, []string{n})
	}
	return res, nil
}

func (s *Server) exists(user string, m []string) (*cluster.Result, error) {
	obj := parseTable(m[1])
	if !s.access.allowed(user, privilege.ShowTables, obj, false) {
		return nil, accessDenied(user, privilege.ShowTables, obj, false)
	}

	result := "0"
	if _, exists := s.tables[obj]; exists {
		result = "1"
	}
	return &cluster.Result{Columns: []string{"result"}, Rows: [][]string{{result}}}, nil
}

func (s *Server) checkTable(user string, m []string) (*cluster.Result, error) {
	obj := parseTable(m[1])
	if !s.access.allowed(user, privilege.ShowTables, obj, false) {
		return nil, accessDenied(user, privilege.ShowTables, obj, false)
	}
	if _, exists := s.tables[obj]; !exists {
		return nil, exception(codeUnknownTable, "Table %s doesn't exist.", obj)
	}
	return &cluster.Result{Columns: []string{"result"}, Rows: [][]string{{"1"}}}, nil
}

var alterCommands = []struct {
	re   *regexp.Regexp
	priv string
}{
	{re(`^ADD COLUMN `), privilege.AlterAddColumn},
	{re(`^DROP COLUMN `), privilege.AlterDropColumn},
	{re(`^MODIFY COLUMN `), privilege.AlterModifyColumn},
	{re(`^COMMENT COLUMN `), privilege.AlterCommentColumn},
	{re(`^CLEAR COLUMN `), privilege.AlterClearColumn},
	{re(`^RENAME COLUMN `), privilege.AlterRenameColumn},
	{re(`^MODIFY ORDER BY `), privilege.AlterOrderBy},
	{re(`^ADD INDEX `), privilege.AlterAddIndex},
	{re(`^DROP INDEX `), privilege.AlterDropIndex},
	{re(`^MATERIALIZE INDEX `), privilege.AlterMaterializeIdx},
	{re(`^CLEAR INDEX `), privilege.AlterClearIndex},
	{re(`^ADD CONSTRAINT `), privilege.AlterAddConstraint},
	{re(`^DROP CONSTRAINT `), privilege.AlterDropConstraint},
	{re(`^MODIFY TTL `), privilege.AlterTTL},
	{re(`^MATERIALIZE TTL`), privilege.AlterMaterializeTTL},
	{re(`^MODIFY SETTING `), privilege.AlterSettings},
	{re(`^UPDATE `), privilege.AlterUpdate},
	{re(`^DELETE WHERE `), privilege.AlterDelete},
	{re(`^FREEZE`), privilege.AlterFreeze},
	{re(`^FETCH PART(?:ITION)? `), privilege.AlterFetch},
	{re(`^MOVE PART(?:ITION)? `), privilege.AlterMove},
}

var moveToTable = re(`^MOVE PART(?:ITION)? \S+ TO TABLE ` + tableName)

func (s *Server) alter(user string, m []string) (*cluster.Result, error) {
	obj, command := parseTable(m[1]), m[2]

	priv := ""
	for _, c := range alterCommands {
		if c.re.MatchString(command) {
			priv = c.priv
			break
		}
	}
	if priv == "" {
		return nil, exception(codeSyntaxError, "Syntax error: unknown ALTER command: %s", command)
	}

	t, err := s.check(user, priv, obj)
	if err != nil {
		return nil, err
	}

	var dest *table
	if priv == privilege.AlterMove {
		if mv := moveToTable.FindStringSubmatch(command); mv != nil {
			destObj := parseTable(mv[1])
			if dest, err = s.check(user, privilege.Insert, destObj); err != nil {
				return nil, err
			}
			if dest == nil {
				return nil, exception(codeUnknownTable, "Table %s doesn't exist.", destObj)
			}
		}
	}

	if t == nil {
		return nil, exception(codeUnknownTable, "Table %s doesn't exist.", obj)
	}

	switch priv {
	case privilege.AlterFetch:
		if !strings.HasPrefix(t.engine, "Replicated") {
			return nil, exception(codeNotImplemented, "FETCH PARTITION is not supported by storage %s", t.engine)
		}
	case privilege.AlterDelete:
		t.rows = nil
	case privilege.AlterMove:
		if dest != nil {
			dest.rows = append(dest.rows, t.rows...)
			t.rows = nil
		}
	}
	return empty()
}
