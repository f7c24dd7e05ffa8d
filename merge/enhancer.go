package merge

import (
	"fmt"
	"io"
	"sort"
)

// EnhanceInput is everything the merge enhancer needs: the universe of
// linkable libraries keyed by the module that roots them, the declared
// merge groups, and the collaborators used when realizing artifacts.
type EnhanceInput struct {
	// Modules maps each consuming module to the linkable closure it
	// packages. The union of all values is the merge universe.
	Modules map[string][]Linkable

	// AssetModules lists closures packaged as raw assets rather than
	// loaded DSOs. Asset libraries may still appear in Modules through
	// other consumers; the asset classification wins.
	AssetModules map[string][]Linkable

	Groups []Group

	// Glue is an optional reference to a library linked first into
	// every actually-merged output, typically carrying a constructor
	// that eases debugging of merged stacks. It is validated with
	// AsLinkable.
	Glue interface{}

	// LocalizeSymbols lists dynamic symbols to demote to local binding
	// and hidden visibility in actually-merged outputs.
	LocalizeSymbols []string

	Platforms []Platform

	Linker Linker
}

// SonameEntry records the mapping from one original library name to the
// name of the output it ended up in.
type SonameEntry struct {
	Original string
	Final    string
}

// EnhanceResult is the outcome of one merge enhancement pass.
type EnhanceResult struct {
	// Merged maps each consuming module to its post-merge linkables, in
	// first-use order, deduplicated by identity.
	Merged map[string][]*MergedLinkable

	// MergedAssets is the same mapping for asset-packaged closures.
	MergedAssets map[string][]*MergedLinkable

	// Sonames maps every original library to its final output name,
	// sorted by original name.
	Sonames []SonameEntry

	order []*MergedLinkable
}

// Enhance partitions the library universe into merge constituents,
// verifies that the induced dependency graph is acyclic, and builds one
// MergedLinkable per constituent in dependency order. It registers no
// build rules itself; artifacts are realized lazily through
// MergedLinkable.SharedOutputs.
func Enhance(in EnhanceInput) (*EnhanceResult, error) {
	glue, err := AsLinkable(in.Glue)
	if err != nil {
		return nil, err
	}

	universe, assets := collectUniverse(in.Modules, in.AssetModules)

	part, err := partitionLibraries(universe, assets, in.Groups)
	if err != nil {
		return nil, err
	}

	g, err := buildQuotientGraph(part, in.Platforms)
	if err != nil {
		return nil, err
	}

	order, err := g.topologicalOrder()
	if err != nil {
		return nil, err
	}

	built, err := buildMergedLinkables(g, order, in.Platforms, glue, in.LocalizeSymbols, in.Linker)
	if err != nil {
		return nil, err
	}

	res := &EnhanceResult{
		Merged:       bucketize(in.Modules, part, built, false),
		MergedAssets: bucketize(in.AssetModules, part, built, true),
	}
	for _, idx := range order {
		res.order = append(res.order, built[idx])
	}

	for id, idx := range part.membership {
		res.Sonames = append(res.Sonames, SonameEntry{Original: id, Final: built[idx].Soname()})
	}
	sort.Slice(res.Sonames, func(i, j int) bool { return res.Sonames[i].Original < res.Sonames[j].Original })

	return res, nil
}

// collectUniverse flattens the module map into a deduplicated universe
// with a stable order, and records which libraries are asset-packaged.
// Module keys are visited in sorted order so the universe does not
// depend on map iteration.
func collectUniverse(modules, assetModules map[string][]Linkable) ([]Linkable, map[string]bool) {
	var universe []Linkable
	seen := make(map[string]bool)
	assets := make(map[string]bool)

	collect := func(m map[string][]Linkable, asset bool) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, lib := range m[k] {
				if asset {
					assets[lib.Identity()] = true
				}
				if seen[lib.Identity()] {
					continue
				}
				seen[lib.Identity()] = true
				universe = append(universe, lib)
			}
		}
	}

	collect(modules, false)
	collect(assetModules, true)

	return universe, assets
}

// bucketize translates each module's original closure into post-merge
// linkables, keeping first-use order and collapsing members of the same
// constituent into one entry. A library whose asset classification does
// not match the bucket is dropped from it; a library listed both ways
// is an asset and only appears in the asset bucket.
func bucketize(modules map[string][]Linkable, part *partition, built []*MergedLinkable, asset bool) map[string][]*MergedLinkable {
	out := make(map[string][]*MergedLinkable, len(modules))
	for name, libs := range modules {
		var merged []*MergedLinkable
		seen := make(map[string]bool)
		for _, lib := range libs {
			m := built[part.membership[lib.Identity()]]
			if m.IsAsset() != asset || seen[m.identity] {
				continue
			}
			seen[m.identity] = true
			merged = append(merged, m)
		}
		out[name] = merged
	}
	return out
}

// ConstructionOrder returns every built linkable with dependencies
// strictly before dependents.
func (r *EnhanceResult) ConstructionOrder() []*MergedLinkable { return r.order }

// WriteSonameMap writes the original-to-final name mapping, one pair
// per line, for symbolication of merged stacks.
func (r *EnhanceResult) WriteSonameMap(w io.Writer) error {
	for _, e := range r.Sonames {
		if _, err := fmt.Fprintf(w, "%s %s\n", e.Original, e.Final); err != nil {
			return err
		}
	}
	return nil
}
