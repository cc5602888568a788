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
	"sort"

	"github.com/dolthub/rbac-suite/rbac/privilege"
)

const wildcard = "*"

// object is the target of a grant: db.table, db.* or *.*.
type object struct {
	db    string
	table string
}

func (o object) String() string {
	return o.db + "." + o.table
}

// covers reports whether a grant on o applies to target.
func (o object) covers(target object) bool {
	if o.db != wildcard && o.db != target.db {
		return false
	}
	return o.table == wildcard || o.table == target.table
}

type grant struct {
	priv        string
	on          object
	grantOption bool
}

// principal is a user or a role.
type principal struct {
	name   string
	grants []grant
	roles  map[string]bool
	// revokes narrow grants made on a wider object. A revoke with
	// grantOption set only takes away the grant option.
	revokes []grant
}

func newPrincipal(name string) *principal {
	return &principal{name: name, roles: make(map[string]bool)}
}

func (p *principal) grant(priv string, on object, grantOption bool) {
	var revokes []grant
	for _, r := range p.revokes {
		if on.covers(r.on) && privilege.Covers(priv, r.priv) {
			if grantOption {
				continue
			}
			r.grantOption = true
		}
		revokes = append(revokes, r)
	}
	p.revokes = revokes

	for i, g := range p.grants {
		if g.priv == priv && g.on == on {
			p.grants[i].grantOption = g.grantOption || grantOption
			return
		}
	}
	p.grants = append(p.grants, grant{priv: priv, on: on, grantOption: grantOption})
}

func overlaps(a, b string) bool {
	return privilege.Covers(a, b) || privilege.Covers(b, a)
}

// revoke removes priv on the given object. Grants of a parent privilege on
// the same object are split into the children that remain. Grants on a
// wider object are kept and narrowed by a partial revoke.
func (p *principal) revoke(priv string, on object, grantOptionOnly bool) {
	var result []grant
	partial := false
	for _, g := range p.grants {
		if !overlaps(priv, g.priv) {
			result = append(result, g)
			continue
		}
		if !on.covers(g.on) {
			if g.on.covers(on) && (g.grantOption || !grantOptionOnly) {
				partial = true
			}
			result = append(result, g)
			continue
		}

		if grantOptionOnly {
			if privilege.Covers(priv, g.priv) {
				g.grantOption = false
				result = append(result, g)
				continue
			}
			for _, rest := range privilege.Subtract(g.priv, priv) {
				result = append(result, grant{priv: rest, on: g.on, grantOption: g.grantOption})
			}
			result = append(result, grant{priv: priv, on: g.on})
			continue
		}

		for _, rest := range privilege.Subtract(g.priv, priv) {
			result = append(result, grant{priv: rest, on: g.on, grantOption: g.grantOption})
		}
	}
	p.grants = result

	if partial {
		p.revokes = append(p.revokes, grant{priv: priv, on: on, grantOption: grantOptionOnly})
	}
}

// narrowed reports whether a partial revoke takes priv on target away from
// a grant made on a wider object.
func (p *principal) narrowed(g grant, priv string, target object, grantOption bool) bool {
	for _, r := range p.revokes {
		if r.grantOption && !grantOption {
			continue
		}
		if r.on.covers(target) && !r.on.covers(g.on) && privilege.Covers(r.priv, priv) {
			return true
		}
	}
	return false
}

func (p *principal) allows(priv string, on object, grantOption bool) bool {
	for _, g := range p.grants {
		if grantOption && !g.grantOption {
			continue
		}
		if privilege.Covers(g.priv, priv) && g.on.covers(on) && !p.narrowed(g, priv, on, grantOption) {
			return true
		}
	}
	return false
}

// holdsAny reports whether p holds any privilege on the table.
func (p *principal) holdsAny(on object) bool {
	for _, g := range p.grants {
		if g.on.covers(on) && !p.narrowed(g, g.priv, on, false) {
			return true
		}
	}
	return false
}

// access is the access control state shared by every node of a simulated
// cluster.
type access struct {
	superuser string
	users     map[string]*principal
	roles     map[string]*principal
}

func newAccess(superuser string) *access {
	return &access{
		superuser: superuser,
		users:     map[string]*principal{superuser: newPrincipal(superuser)},
		roles:     make(map[string]*principal),
	}
}

// effective returns user followed by its roles.
func (a *access) effective(user string) []*principal {
	u, ok := a.users[user]
	if !ok {
		return nil
	}

	principals := []*principal{u}
	roles := make([]string, 0, len(u.roles))
	for r := range u.roles {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, r := range roles {
		if role, ok := a.roles[r]; ok {
			principals = append(principals, role)
		}
	}
	return principals
}

func (a *access) allowed(user, priv string, on object, grantOption bool) bool {
	if user == a.superuser {
		return true
	}
	for _, p := range a.effective(user) {
		if p.allows(priv, on, grantOption) {
			return true
		}
	}
	return false
}

// visible reports whether user holds any privilege on the table.
func (a *access) visible(user string, on object) bool {
	if user == a.superuser {
		return true
	}
	for _, p := range a.effective(user) {
		if p.holdsAny(on) {
			return true
		}
	}
	return false
}

func (a *access) principal(name string) (*principal, error) {
	if u, ok := a.users[name]; ok {
		return u, nil
	}
	if r, ok := a.roles[name]; ok {
		return r, nil
	}
	return nil, exception(codeUnknownUser, "There is no user or role `%s` in user directories", name)
}
