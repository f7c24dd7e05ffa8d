package merge

import (
	"regexp"

	"github.com/google/blueprint/proptools"

	"android/libmerge/common"
)

// GroupProperties describes one merge group as written in build
// configuration.
type GroupProperties struct {
	// Output is the library name of the merged shared object, e.g.
	// "libapplication.so". It becomes the soname of the merged output.
	Output *string

	// Patterns select member libraries by regexp search against their
	// identities. Patterns are unanchored, so a plain substring works.
	Patterns []string
}

// Group is a compiled merge group.
type Group struct {
	Name     string
	patterns []*regexp.Regexp
}

// ParseGroups compiles merge group properties, preserving declaration
// order. Declaration order decides which group claims a library when
// validating the partition, so it is significant.
func ParseGroups(props []GroupProperties) ([]Group, error) {
	groups := make([]Group, 0, len(props))
	var names []string
	for _, p := range props {
		name := proptools.String(p.Output)
		if name == "" {
			return nil, configErrorf("merge group with patterns %q is missing an output name", p.Patterns)
		}
		if common.InList(name, names) {
			return nil, configErrorf("duplicate merge group output name %q", name)
		}
		names = append(names, name)
		if len(p.Patterns) == 0 {
			return nil, configErrorf("merge group %q has no patterns", name)
		}
		g := Group{Name: name}
		for _, pattern := range p.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, configErrorf("merge group %q: invalid pattern %q: %s", name, pattern, err)
			}
			g.patterns = append(g.patterns, re)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// match reports whether any of the group's patterns is found anywhere
// in identity.
func (g *Group) match(identity string) bool {
	for _, re := range g.patterns {
		if re.MatchString(identity) {
			return true
		}
	}
	return false
}

// AsLinkable validates a glue library reference. The glue library is
// linked first into every actually-merged output, so the reference
// must itself be a Linkable.
func AsLinkable(ref interface{}) (Linkable, error) {
	if ref == nil {
		return nil, nil
	}
	l, ok := ref.(Linkable)
	if !ok {
		return nil, configErrorf("glue library %v is not linkable", ref)
	}
	return l, nil
}
