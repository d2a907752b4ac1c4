// Package access implements permission resolution and enforcement over the
// user -> group -> role -> permission graph.
package access

// Grant is a resolved (module, action) pair reachable from a user.
type Grant struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// GrantSet is a deduplicated lookup over grants.
type GrantSet map[Grant]struct{}

// NewGrantSet builds a set from a grant slice.
func NewGrantSet(grants []Grant) GrantSet {
	set := make(GrantSet, len(grants))
	for _, g := range grants {
		set[g] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the (module, action) pair.
func (s GrantSet) Has(module, action string) bool {
	_, ok := s[Grant{Module: module, Action: action}]
	return ok
}
