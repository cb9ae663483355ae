package rbac

import (
	"sort"
	"strings"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// GeneralDepartment is readable by every authenticated role.
const GeneralDepartment = "general"

// FullAccessRole sees every department.
const FullAccessRole = "C-Level"

// knownRoles maps a role to its home department. Roles outside this table
// fail closed to general-only access.
var knownRoles = map[string]string{
	"Engineering": "engineering",
	"Finance":     "finance",
	"Marketing":   "marketing",
	"HR":          "hr",
	"Employee":    GeneralDepartment,
}

// Context is the access scope of one request. Zero value denies everything
// except general; build it with NewContext.
type Context struct {
	Role       string
	Department string
	FullAccess bool
	allowed    map[string]struct{}
}

// NewContext resolves a role and home department into an access scope.
// Unknown roles and mismatched departments degrade to general-only access
// rather than erroring: a turn must never widen scope on bad input.
func NewContext(role, department string) Context {
	rc := Context{Role: role, Department: strings.ToLower(strings.TrimSpace(department))}
	if role == FullAccessRole {
		rc.FullAccess = true
		return rc
	}
	rc.allowed = map[string]struct{}{GeneralDepartment: {}}
	home, ok := knownRoles[role]
	if !ok {
		logger.Warnf("rbac: unknown role %q, scoping to %s only", role, GeneralDepartment)
		return rc
	}
	if home == GeneralDepartment {
		return rc
	}
	if rc.Department != "" && rc.Department != home {
		logger.Warnf("rbac: role %q claimed department %q, using %q", role, rc.Department, home)
	}
	rc.Department = home
	rc.allowed[home] = struct{}{}
	return rc
}

// Allows reports whether documents from dept are visible in this scope.
func (c Context) Allows(dept string) bool {
	if c.FullAccess {
		return true
	}
	dept = strings.ToLower(strings.TrimSpace(dept))
	if dept == "" {
		return false
	}
	_, ok := c.allowed[dept]
	return ok
}

// Departments returns the allowed department list in sorted order, or nil
// for full access. The sorted order keeps filter expressions and cache keys
// stable.
func (c Context) Departments() []string {
	if c.FullAccess {
		return nil
	}
	out := make([]string, 0, len(c.allowed))
	for d := range c.allowed {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Filter drops results whose department is outside this scope, preserving
// input order.
func (c Context) Filter(results []schema.SearchResult) []schema.SearchResult {
	if c.FullAccess {
		return results
	}
	out := results[:0:0]
	for _, r := range results {
		if c.Allows(r.Document.Department) {
			out = append(out, r)
		}
	}
	return out
}
