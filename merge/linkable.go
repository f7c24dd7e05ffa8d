package merge

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/google/blueprint"
	"github.com/minio/highwayhash"

	"android/libmerge/common"
)

// Linkage is a library's preferred link style. Android defaults to
// shared linking, so a merged output is shared unless every member
// prefers static.
type Linkage int

const (
	Shared Linkage = iota
	Static
)

// Platform identifies one target the enhancer realizes artifacts for,
// for example "android-arm64".
type Platform string

// LinkInput is a library's contribution to a link. WholeArchive forces
// the linker to keep every member object, which is required whenever
// the input crosses what used to be a separate library boundary.
type LinkInput struct {
	Files        []string
	WholeArchive bool
}

// BuildContext is the subset of blueprint's module context the enhancer
// needs to register build rules with the external build engine.
type BuildContext interface {
	Build(pctx blueprint.PackageContext, params blueprint.BuildParams)
	Errorf(format string, args ...interface{})
}

// Linkable is the capability every native library exposes to the merge
// enhancer. Ordinary libraries, prebuilts, glue libraries and the
// synthetic merged libraries all implement it; nothing in the enhancer
// distinguishes them beyond this interface.
type Linkable interface {
	// Identity returns the stable identity of the library, which is
	// also its physical output name, e.g. "libfoo.so".
	Identity() string

	// Deps returns the identities of the libraries this library links
	// against on the given platform, in declaration order.
	Deps(p Platform) []string

	// ExportedDeps returns the identities of dependencies whose
	// interface is re-exported to this library's dependents.
	ExportedDeps(p Platform) []string

	PreferredLinkage() Linkage

	// SharedOutputs realizes (or retrieves) the shared library
	// artifacts of this library for the platform, keyed by output name.
	SharedOutputs(ctx BuildContext, p Platform) (map[string]string, error)

	// StaticLinkInput returns the inputs this library contributes to a
	// static link.
	StaticLinkInput(ctx BuildContext, p Platform) (LinkInput, error)
}

// Linker registers the build rules the enhancer needs: one shared link
// per synthesized output, plus the symbol localization patch. Rule
// scheduling, execution and caching belong to the build engine, not to
// the enhancer.
type Linker interface {
	LinkShared(ctx BuildContext, p Platform, outputName string, inputs []LinkInput, deps []*MergedLinkable) (string, error)
	LocalizeSymbols(ctx BuildContext, p Platform, input, outputName string, symbols []string) (string, error)
}

// MergedLinkable is the composite linkable built for one constituent.
// It is immutable after construction; only artifact realization happens
// later, memoized per platform.
type MergedLinkable struct {
	constituents *Constituents
	deps         []*MergedLinkable
	exportedDeps []*MergedLinkable
	glue         Linkable
	localize     []string
	linkage      Linkage
	token        string
	identity     string

	// canUseOriginal means this linkable and its whole transitive
	// dependency closure are untouched singletons, so the original
	// artifact stays byte-identical to a non-merge build.
	canUseOriginal bool

	linker Linker

	realized common.OncePer
}

var _ Linkable = (*MergedLinkable)(nil)

// buildMergedLinkables walks the constituents in topological order and
// builds one MergedLinkable each, resolving member dependencies through
// the membership index. The returned slice is indexed like the
// partition's constituent arena.
func buildMergedLinkables(g *quotientGraph, order []int, platforms []Platform,
	glue Linkable, localize []string, linker Linker) ([]*MergedLinkable, error) {

	built := make([]*MergedLinkable, len(g.part.constituents))
	localize = common.SortedUniqueStrings(localize)

	for _, idx := range order {
		c := g.part.constituents[idx]
		deps, err := resolveDeps(g.part, built, idx, platforms, Linkable.Deps)
		if err != nil {
			return nil, err
		}
		exportedDeps, err := resolveDeps(g.part, built, idx, platforms, Linkable.ExportedDeps)
		if err != nil {
			return nil, err
		}
		built[idx] = newMergedLinkable(c, deps, exportedDeps, glue, localize, linker)
	}
	return built, nil
}

// resolveDeps maps the member-level dependencies of constituent idx to
// already-built MergedLinkables, dropping intra-group edges, deduping,
// and sorting by identity so the result does not depend on traversal
// order.
func resolveDeps(part *partition, built []*MergedLinkable, idx int, platforms []Platform,
	get func(Linkable, Platform) []string) ([]*MergedLinkable, error) {

	c := part.constituents[idx]
	var resolved []*MergedLinkable
	seen := make(map[string]bool)
	for _, member := range c.members {
		for _, p := range platforms {
			for _, dep := range get(member, p) {
				j, ok := part.membership[dep]
				if !ok {
					return nil, internalErrorf("library %q depends on %q, which is not in the merge universe",
						member.Identity(), dep)
				}
				if j == idx {
					// Intra-group edges are meaningless once merged.
					continue
				}
				d := built[j]
				if d == nil {
					return nil, internalErrorf("dependency %q of %q was not built first; construction order violated",
						dep, c.displayName())
				}
				if seen[d.identity] {
					continue
				}
				seen[d.identity] = true
				resolved = append(resolved, d)
			}
		}
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].identity < resolved[j].identity })
	return resolved, nil
}

func newMergedLinkable(c *Constituents, deps, exportedDeps []*MergedLinkable,
	glue Linkable, localize []string, linker Linker) *MergedLinkable {

	m := &MergedLinkable{
		constituents: c,
		deps:         deps,
		exportedDeps: exportedDeps,
		linker:       linker,
	}

	// Glue and localization only apply to outputs that are actually
	// merged; singletons stay exactly as a non-merge build would have
	// produced them.
	if c.Merged() {
		m.glue = glue
		m.localize = localize
	}

	m.linkage = Static
	for _, member := range c.members {
		if member.PreferredLinkage() != Static {
			m.linkage = Shared
			break
		}
	}

	m.canUseOriginal = !c.Merged()
	for _, dep := range deps {
		if !dep.canUseOriginal {
			m.canUseOriginal = false
		}
	}
	for _, dep := range exportedDeps {
		if !dep.canUseOriginal {
			m.canUseOriginal = false
		}
	}

	m.token = identityToken(c, deps, exportedDeps, m.glue, m.localize)
	if c.Merged() {
		m.identity = c.name + "_" + m.token
	} else {
		m.identity = c.members[0].Identity()
	}

	return m
}

// The identity token must be stable across builds and processes, so the
// hash key is a fixed constant.
var tokenKey = []byte("libmerge.identity.token.hhkey.01")

// identityToken hashes the structure of a merged linkable: its sorted
// member identities, the identity tokens of its resolved dependencies
// and exported dependencies, the glue identity and the localize set.
// It is a pure function of that structure, never of file contents or
// build time, so structurally identical merges across independent
// consumers hash alike.
func identityToken(c *Constituents, deps, exportedDeps []*MergedLinkable,
	glue Linkable, localize []string) string {

	h, err := highwayhash.New64(tokenKey)
	if err != nil {
		panic(err)
	}

	field := func(tag string, values []string) {
		var n [4]byte
		io.WriteString(h, tag)
		binary.LittleEndian.PutUint32(n[:], uint32(len(values)))
		h.Write(n[:])
		for _, v := range values {
			binary.LittleEndian.PutUint32(n[:], uint32(len(v)))
			h.Write(n[:])
			io.WriteString(h, v)
		}
	}

	members := make([]string, 0, len(c.members))
	for _, m := range c.members {
		members = append(members, m.Identity())
	}
	sort.Strings(members)

	field("members", members)
	field("deps", tokens(deps))
	field("exported", tokens(exportedDeps))
	if glue != nil {
		field("glue", []string{glue.Identity()})
	}
	field("localize", localize)

	return fmt.Sprintf("%016x", h.Sum64())
}

func tokens(linkables []*MergedLinkable) []string {
	out := make([]string, 0, len(linkables))
	for _, l := range linkables {
		out = append(out, l.token)
	}
	return out
}

// Identity returns the synthetic identity: the sole member's own
// identity for a singleton (preserving cache compatibility with
// non-merged builds), or the group output name disambiguated by the
// identity token for an actual merge.
func (m *MergedLinkable) Identity() string { return m.identity }

// Soname is the physical output name: the group's declared output name
// for an actual merge, the sole member's own name for a singleton.
func (m *MergedLinkable) Soname() string {
	if m.constituents.Merged() {
		return m.constituents.name
	}
	return m.constituents.members[0].Identity()
}

func (m *MergedLinkable) Constituents() *Constituents { return m.constituents }

func (m *MergedLinkable) IdentityToken() string { return m.token }

func (m *MergedLinkable) CanUseOriginal() bool { return m.canUseOriginal }

func (m *MergedLinkable) PreferredLinkage() Linkage { return m.linkage }

// IsAsset reports whether this linkable is packaged as a raw asset
// rather than a loaded DSO.
func (m *MergedLinkable) IsAsset() bool { return m.constituents.asset }

func (m *MergedLinkable) Deps(p Platform) []string {
	return identities(m.deps)
}

func (m *MergedLinkable) ExportedDeps(p Platform) []string {
	return identities(m.exportedDeps)
}

func identities(linkables []*MergedLinkable) []string {
	out := make([]string, 0, len(linkables))
	for _, l := range linkables {
		out = append(out, l.identity)
	}
	return out
}

// linkDeps returns the dependency list a synthesized link needs: the
// resolved deps followed by any exported deps not already present.
func (m *MergedLinkable) linkDeps() []*MergedLinkable {
	deps := append([]*MergedLinkable(nil), m.deps...)
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		seen[d.identity] = true
	}
	for _, d := range m.exportedDeps {
		if !seen[d.identity] {
			seen[d.identity] = true
			deps = append(deps, d)
		}
	}
	return deps
}

type realizeKey struct {
	identity string
	platform Platform
}

type realizeResult struct {
	outputs map[string]string
	err     error
}

// SharedOutputs realizes the physical shared artifacts for this
// linkable on p. Realization is memoized: asking twice for the same
// (constituents, platform) pair returns the same registered unit of
// work, keyed by the deterministic synthetic identity.
func (m *MergedLinkable) SharedOutputs(ctx BuildContext, p Platform) (map[string]string, error) {
	res := m.realized.Once(realizeKey{m.identity, p}, func() interface{} {
		outputs, err := m.realizeShared(ctx, p)
		return realizeResult{outputs, err}
	}).(realizeResult)
	return res.outputs, res.err
}

func (m *MergedLinkable) realizeShared(ctx BuildContext, p Platform) (map[string]string, error) {
	if m.linkage == Static {
		// Static constituents contribute no physical artifact; their
		// objects flow into dependents through StaticLinkInput.
		return nil, nil
	}
	if m.canUseOriginal {
		return m.constituents.members[0].SharedOutputs(ctx, p)
	}

	var inputs []LinkInput
	if m.glue != nil {
		in, err := m.glue.StaticLinkInput(ctx, p)
		if err != nil {
			return nil, err
		}
		in.WholeArchive = true
		inputs = append(inputs, in)
	}
	effective := 0
	for _, member := range m.constituents.members {
		in, err := member.StaticLinkInput(ctx, p)
		if err != nil {
			return nil, err
		}
		if len(in.Files) == 0 {
			continue
		}
		effective++
		in.WholeArchive = true
		inputs = append(inputs, in)
	}
	if effective == 0 && !m.constituents.Merged() {
		// Nothing to relink from; keep the member's existing artifact.
		return m.constituents.members[0].SharedOutputs(ctx, p)
	}

	out, err := m.linker.LinkShared(ctx, p, m.Soname(), inputs, m.linkDeps())
	if err != nil {
		return nil, err
	}
	if len(m.localize) > 0 && m.constituents.Merged() {
		out, err = m.linker.LocalizeSymbols(ctx, p, out, m.Soname(), m.localize)
		if err != nil {
			return nil, err
		}
	}
	return map[string]string{m.Soname(): out}, nil
}

// StaticLinkInput passes the members' static inputs through, wrapped as
// whole archives so the linker cannot drop symbols that used to cross a
// library boundary.
func (m *MergedLinkable) StaticLinkInput(ctx BuildContext, p Platform) (LinkInput, error) {
	var files []string
	for _, member := range m.constituents.members {
		in, err := member.StaticLinkInput(ctx, p)
		if err != nil {
			return LinkInput{}, err
		}
		files = append(files, in.Files...)
	}
	return LinkInput{Files: files, WholeArchive: true}, nil
}
