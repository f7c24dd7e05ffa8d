package merge

import (
	"fmt"
	"sort"
	"strings"
)

// Constituents is the set of original libraries collapsed into one
// output unit. A merged constituent carries the group's output name; a
// singleton has no name and exactly one member.
type Constituents struct {
	name    string
	members []Linkable
	asset   bool
}

// Merged reports whether this constituent is an actual merge of a
// declared group, as opposed to a singleton passthrough.
func (c *Constituents) Merged() bool { return c.name != "" }

// Members returns the original libraries collapsed into this
// constituent, in universe order.
func (c *Constituents) Members() []Linkable { return c.members }

func (c *Constituents) displayName() string {
	if c.Merged() {
		return c.name
	}
	return c.members[0].Identity()
}

// partition is an arena of constituents with O(1) membership lookup by
// library identity. Every library in the universe belongs to exactly
// one constituent.
type partition struct {
	constituents []*Constituents
	membership   map[string]int
}

// partitionLibraries assigns every library in the (deduplicated)
// universe to exactly one constituent. Groups claim members by pattern
// search in declaration order; a library claimed by two different
// groups is a configuration error. Libraries no group claims become
// singletons.
func partitionLibraries(universe []Linkable, assets map[string]bool, groups []Group) (*partition, error) {
	groupOf := make(map[string]int)
	for gi := range groups {
		g := &groups[gi]
		for _, lib := range universe {
			id := lib.Identity()
			if !g.match(id) {
				continue
			}
			if prev, ok := groupOf[id]; ok && prev != gi {
				return nil, configErrorf("library %q matched by merge groups %q and %q",
					id, groups[prev].Name, g.Name)
			}
			groupOf[id] = gi
		}
	}

	grouped := make([][]Linkable, len(groups))
	for _, lib := range universe {
		if gi, ok := groupOf[lib.Identity()]; ok {
			grouped[gi] = append(grouped[gi], lib)
		}
	}

	p := &partition{membership: make(map[string]int, len(universe))}

	add := func(c *Constituents) {
		idx := len(p.constituents)
		p.constituents = append(p.constituents, c)
		for _, m := range c.members {
			p.membership[m.Identity()] = idx
		}
	}

	for gi, members := range grouped {
		if len(members) == 0 {
			continue
		}
		c := &Constituents{name: groups[gi].Name, members: members}
		if err := classifyAssets(c, assets); err != nil {
			return nil, err
		}
		add(c)
	}

	for _, lib := range universe {
		if _, ok := groupOf[lib.Identity()]; ok {
			continue
		}
		add(&Constituents{
			members: []Linkable{lib},
			asset:   assets[lib.Identity()],
		})
	}

	return p, nil
}

// classifyAssets records the asset classification of a merged
// constituent and rejects groups that mix asset and non-asset members.
// An asset library is packaged as raw bytes while the others are loaded
// as DSOs, so a mixed merge has no consistent packaging.
func classifyAssets(c *Constituents, assets map[string]bool) error {
	c.asset = assets[c.members[0].Identity()]
	for _, m := range c.members {
		if assets[m.Identity()] == c.asset {
			continue
		}
		desc := make([]string, 0, len(c.members))
		for _, m := range c.members {
			kind := "library"
			if assets[m.Identity()] {
				kind = "asset"
			}
			desc = append(desc, fmt.Sprintf("%s (%s)", m.Identity(), kind))
		}
		sort.Strings(desc)
		return configErrorf("merge group %q mixes asset and non-asset libraries: %s",
			c.name, strings.Join(desc, ", "))
	}
	return nil
}
