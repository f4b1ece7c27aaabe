package transform

import "strconv"

// NameGen hands out identifiers that collide neither with a fixed scope nor
// with anything it handed out before. One NameGen lives for one component
// (or variant) transform; nothing is shared between invocations.
type NameGen struct {
	scope    NameSet
	assigned NameSet
}

func NewNameGen(scope NameSet) *NameGen {
	if scope == nil {
		scope = NameSet{}
	}
	return &NameGen{scope: scope, assigned: NameSet{}}
}

// Fresh returns base, or base1, base2, ... for the first candidate that is
// neither in scope nor already assigned, and marks it assigned.
func (g *NameGen) Fresh(base string) string {
	name := base
	for i := 1; g.taken(name); i++ {
		name = base + strconv.Itoa(i)
	}
	g.assigned.Add(name)
	return name
}

// Claim marks name assigned when it is not already. An existing name in the
// scope may be claimed: that is how user-declared parameters keep their
// names. It reports whether the claim succeeded.
func (g *NameGen) Claim(name string) bool {
	if g.assigned.Has(name) {
		return false
	}
	g.assigned.Add(name)
	return true
}

// Assigned reports whether name was handed out or claimed.
func (g *NameGen) Assigned(name string) bool {
	return g.assigned.Has(name)
}

func (g *NameGen) taken(name string) bool {
	return g.scope.Has(name) || g.assigned.Has(name)
}
