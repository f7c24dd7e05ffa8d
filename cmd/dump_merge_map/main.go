// dump_merge_map reads a YAML description of a library universe and its
// merge groups, runs the merge enhancement, and prints the resulting
// construction order, planned link commands and soname mapping. It is a
// debugging aid for working out why a merge configuration produces the
// outputs it does.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/blueprint"
	"github.com/google/blueprint/proptools"
	"gopkg.in/yaml.v3"

	"android/libmerge/merge"
)

type libraryDesc struct {
	Name         string   `yaml:"name"`
	Module       string   `yaml:"module"`
	Deps         []string `yaml:"deps"`
	ExportedDeps []string `yaml:"exported_deps"`
	Linkage      string   `yaml:"linkage"`
	Asset        bool     `yaml:"asset"`
}

type groupDesc struct {
	Output   string   `yaml:"output"`
	Patterns []string `yaml:"patterns"`
}

type planDesc struct {
	Libraries       []libraryDesc `yaml:"libraries"`
	MergeGroups     []groupDesc   `yaml:"merge_groups"`
	Glue            string        `yaml:"glue"`
	LocalizeSymbols []string      `yaml:"localize_symbols"`
}

// planLib backs one described library with synthetic prebuilt paths so
// the enhancement can run without any real artifacts.
type planLib struct {
	desc libraryDesc
}

func (l *planLib) Identity() string { return l.desc.Name }

func (l *planLib) Deps(p merge.Platform) []string { return l.desc.Deps }

func (l *planLib) ExportedDeps(p merge.Platform) []string { return l.desc.ExportedDeps }

func (l *planLib) PreferredLinkage() merge.Linkage {
	if l.desc.Linkage == "static" {
		return merge.Static
	}
	return merge.Shared
}

func (l *planLib) SharedOutputs(ctx merge.BuildContext, p merge.Platform) (map[string]string, error) {
	return map[string]string{l.desc.Name: filepath.Join("prebuilt", string(p), l.desc.Name)}, nil
}

func (l *planLib) StaticLinkInput(ctx merge.BuildContext, p merge.Platform) (merge.LinkInput, error) {
	obj := filepath.Join("obj", string(p), strings.TrimSuffix(l.desc.Name, ".so")+".a")
	return merge.LinkInput{Files: []string{obj}}, nil
}

// planLinker records what would be linked instead of registering rules.
type planLinker struct {
	plans []string
}

func (l *planLinker) LinkShared(ctx merge.BuildContext, p merge.Platform, outputName string,
	inputs []merge.LinkInput, deps []*merge.MergedLinkable) (string, error) {

	var files []string
	for _, in := range inputs {
		files = append(files, in.Files...)
	}
	depNames := make([]string, 0, len(deps))
	for _, d := range deps {
		depNames = append(depNames, d.Soname())
	}
	l.plans = append(l.plans, fmt.Sprintf("link %s [%s] deps [%s] on %s",
		outputName, strings.Join(files, " "), strings.Join(depNames, " "), p))
	return filepath.Join("merged", string(p), outputName), nil
}

func (l *planLinker) LocalizeSymbols(ctx merge.BuildContext, p merge.Platform, input, outputName string,
	symbols []string) (string, error) {

	l.plans = append(l.plans, fmt.Sprintf("localize %s [%s] on %s",
		outputName, strings.Join(symbols, " "), p))
	return filepath.Join("merged", string(p), "localized", outputName), nil
}

type planContext struct{}

func (planContext) Build(pctx blueprint.PackageContext, params blueprint.BuildParams) {}

func (planContext) Errorf(format string, args ...interface{}) {}

func main() {
	planFile := flag.String("p", "", "YAML merge plan")
	flag.Parse()

	if *planFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*planFile)
	if err != nil {
		log.Fatalf("%s", err.Error())
	}
	var plan planDesc
	if err := yaml.Unmarshal(data, &plan); err != nil {
		log.Fatalf("%s: %s", *planFile, err.Error())
	}

	modules := make(map[string][]merge.Linkable)
	assetModules := make(map[string][]merge.Linkable)
	byName := make(map[string]*planLib)
	for i := range plan.Libraries {
		lib := &planLib{desc: plan.Libraries[i]}
		byName[lib.desc.Name] = lib
		module := lib.desc.Module
		if module == "" {
			module = "app"
		}
		if lib.desc.Asset {
			assetModules[module] = append(assetModules[module], lib)
		} else {
			modules[module] = append(modules[module], lib)
		}
	}

	props := make([]merge.GroupProperties, 0, len(plan.MergeGroups))
	for _, g := range plan.MergeGroups {
		props = append(props, merge.GroupProperties{
			Output:   proptools.StringPtr(g.Output),
			Patterns: g.Patterns,
		})
	}
	groups, err := merge.ParseGroups(props)
	if err != nil {
		log.Fatalf("%s", err.Error())
	}

	var glue interface{}
	if plan.Glue != "" {
		if lib, ok := byName[plan.Glue]; ok {
			glue = lib
		} else {
			glue = plan.Glue
		}
	}

	linker := &planLinker{}
	res, err := merge.Enhance(merge.EnhanceInput{
		Modules:         modules,
		AssetModules:    assetModules,
		Groups:          groups,
		Glue:            glue,
		LocalizeSymbols: plan.LocalizeSymbols,
		Platforms:       []merge.Platform{"android"},
		Linker:          linker,
	})
	if err != nil {
		log.Fatalf("%s", err.Error())
	}

	ctx := planContext{}
	fmt.Println("construction order:")
	for _, m := range res.ConstructionOrder() {
		if _, err := m.SharedOutputs(ctx, "android"); err != nil {
			log.Fatalf("%s: %s", m.Soname(), err.Error())
		}
		fmt.Printf("  %s (%s)\n", m.Soname(), m.Identity())
	}

	fmt.Println("planned links:")
	for _, p := range linker.plans {
		fmt.Printf("  %s\n", p)
	}

	fmt.Println("soname map:")
	if err := res.WriteSonameMap(os.Stdout); err != nil {
		log.Fatalf("%s", err.Error())
	}
}
