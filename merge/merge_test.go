package merge

import (
	"fmt"
	"sync"

	"github.com/google/blueprint"
	"github.com/google/blueprint/proptools"
)

// testLib is a minimal Linkable for exercising the enhancer without a
// build engine.
type testLib struct {
	id           string
	deps         []string
	exportedDeps []string
	linkage      Linkage
	staticFiles  []string

	mu          sync.Mutex
	sharedCalls int
}

func (l *testLib) Identity() string { return l.id }

func (l *testLib) Deps(p Platform) []string { return l.deps }

func (l *testLib) ExportedDeps(p Platform) []string { return l.exportedDeps }

func (l *testLib) PreferredLinkage() Linkage { return l.linkage }

func (l *testLib) SharedOutputs(ctx BuildContext, p Platform) (map[string]string, error) {
	l.mu.Lock()
	l.sharedCalls++
	l.mu.Unlock()
	return map[string]string{l.id: "prebuilt/" + string(p) + "/" + l.id}, nil
}

func (l *testLib) StaticLinkInput(ctx BuildContext, p Platform) (LinkInput, error) {
	return LinkInput{Files: l.staticFiles}, nil
}

func lib(id string, deps ...string) *testLib {
	return &testLib{id: id, deps: deps, staticFiles: []string{"obj/" + id + ".a"}}
}

// testLinker records every link and localize request.
type testLinker struct {
	mu        sync.Mutex
	links     []linkRecord
	localizes []localizeRecord
}

type linkRecord struct {
	platform Platform
	output   string
	inputs   []LinkInput
	deps     []string
}

type localizeRecord struct {
	platform Platform
	input    string
	output   string
	symbols  []string
}

func (l *testLinker) LinkShared(ctx BuildContext, p Platform, outputName string,
	inputs []LinkInput, deps []*MergedLinkable) (string, error) {

	l.mu.Lock()
	defer l.mu.Unlock()
	depNames := make([]string, 0, len(deps))
	for _, d := range deps {
		depNames = append(depNames, d.Soname())
	}
	l.links = append(l.links, linkRecord{p, outputName, inputs, depNames})
	return fmt.Sprintf("merged/%s/%s", p, outputName), nil
}

func (l *testLinker) LocalizeSymbols(ctx BuildContext, p Platform, input, outputName string,
	symbols []string) (string, error) {

	l.mu.Lock()
	defer l.mu.Unlock()
	l.localizes = append(l.localizes, localizeRecord{p, input, outputName, symbols})
	return fmt.Sprintf("merged/%s/localized/%s", p, outputName), nil
}

type testContext struct{}

func (testContext) Build(pctx blueprint.PackageContext, params blueprint.BuildParams) {}

func (testContext) Errorf(format string, args ...interface{}) {}

func makeGroups(t interface{ Fatalf(string, ...interface{}) }, specs ...[2]string) []Group {
	props := make([]GroupProperties, 0, len(specs))
	for _, s := range specs {
		props = append(props, GroupProperties{
			Output:   proptools.StringPtr(s[0]),
			Patterns: []string{s[1]},
		})
	}
	groups, err := ParseGroups(props)
	if err != nil {
		t.Fatalf("ParseGroups: %s", err)
	}
	return groups
}
