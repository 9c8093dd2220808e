package roles

import "strings"

// Decision is the outcome of the path authorization table for one request.
type Decision int

const (
	// Public: no rule matches; the path is not role-gated.
	Public Decision = iota
	Allowed
	Denied
)

// rule gates one UI path prefix. minRole uses the role hierarchy, so a rule
// requiring INSTRUCTOR also admits SUPER_INSTRUCTOR and ADMIN.
type rule struct {
	prefix string

	// minRole is the least privileged role admitted. Empty with
	// anyAuthenticated set means any non-empty role passes.
	minRole          string
	anyAuthenticated bool
}

// The table below is the wire contract for UI path gating. Longest prefix
// wins, so a future "/instructor/admin-tools" rule would shadow
// "/instructor" for that subtree.
var rules = []rule{
	{prefix: "/admin", minRole: Admin},
	{prefix: "/superadmin", minRole: Admin},
	{prefix: "/super-instructor", minRole: SuperInstructor},
	{prefix: "/instructor", minRole: Instructor},
	{prefix: "/learner", anyAuthenticated: true},
}

// Decide applies the table to a request path and the (peeked, unverified)
// role. role is "" when no session cookie was presented.
func Decide(path, role string) Decision {
	var matched *rule
	for i := range rules {
		r := &rules[i]
		if !prefixMatch(path, r.prefix) {
			continue
		}
		if matched == nil || len(r.prefix) > len(matched.prefix) {
			matched = r
		}
	}
	if matched == nil {
		return Public
	}
	if role == "" {
		return Denied
	}
	if matched.anyAuthenticated {
		return Allowed
	}
	if AtLeast(role, matched.minRole) {
		return Allowed
	}
	return Denied
}

// prefixMatch matches whole path segments: "/admin" gates "/admin" and
// "/admin/users" but not "/administrator".
func prefixMatch(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
