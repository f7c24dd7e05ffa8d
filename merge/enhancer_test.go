package merge

import (
	"bytes"
	"testing"
)

func TestEnhance(t *testing.T) {
	a := lib("liba.so", "libb.so", "libc.so")
	b := lib("libb.so", "libc.so")
	c := lib("libc.so")
	d := lib("libd.so")
	asset := lib("libasset.so")

	groups := makeGroups(t, [2]string{"libmerged.so", "lib[ab]"})

	res, err := Enhance(EnhanceInput{
		Modules: map[string][]Linkable{
			"app":    {a, b, c},
			"plugin": {b, c, d},
		},
		AssetModules: map[string][]Linkable{
			"app": {asset},
		},
		Groups:    groups,
		Platforms: testPlatforms,
		Linker:    &testLinker{},
	})
	if err != nil {
		t.Fatalf("Enhance: %s", err)
	}

	// a and b collapse into one entry; everything keeps first-use order.
	app := res.Merged["app"]
	if len(app) != 2 || app[0].Soname() != "libmerged.so" || app[1].Soname() != "libc.so" {
		t.Errorf("app bucket = %v", sonames(app))
	}
	plugin := res.Merged["plugin"]
	if len(plugin) != 3 || plugin[0].Soname() != "libmerged.so" ||
		plugin[1].Soname() != "libc.so" || plugin[2].Soname() != "libd.so" {
		t.Errorf("plugin bucket = %v", sonames(plugin))
	}
	assets := res.MergedAssets["app"]
	if len(assets) != 1 || assets[0].Soname() != "libasset.so" || !assets[0].IsAsset() {
		t.Errorf("asset bucket = %v", sonames(assets))
	}

	// The same constituent realizes as the same linkable everywhere.
	if app[0] != plugin[0] {
		t.Error("merged constituent differs between modules")
	}

	// Construction order puts dependencies first.
	pos := make(map[string]int)
	for i, m := range res.ConstructionOrder() {
		pos[m.Soname()] = i
	}
	if pos["libc.so"] > pos["libmerged.so"] {
		t.Errorf("libc.so ordered after its dependent: %v", pos)
	}

	want := []SonameEntry{
		{"liba.so", "libmerged.so"},
		{"libasset.so", "libasset.so"},
		{"libb.so", "libmerged.so"},
		{"libc.so", "libc.so"},
		{"libd.so", "libd.so"},
	}
	if len(res.Sonames) != len(want) {
		t.Fatalf("soname map = %v, want %v", res.Sonames, want)
	}
	for i, e := range want {
		if res.Sonames[i] != e {
			t.Errorf("soname entry %d = %v, want %v", i, res.Sonames[i], e)
		}
	}

	var buf bytes.Buffer
	if err := res.WriteSonameMap(&buf); err != nil {
		t.Fatalf("WriteSonameMap: %s", err)
	}
	wantMap := "liba.so libmerged.so\n" +
		"libasset.so libasset.so\n" +
		"libb.so libmerged.so\n" +
		"libc.so libc.so\n" +
		"libd.so libd.so\n"
	if buf.String() != wantMap {
		t.Errorf("soname map output:\n%s\nwant:\n%s", buf.String(), wantMap)
	}
}

func TestEnhanceAssetOverlap(t *testing.T) {
	a := lib("liba.so")
	shared := lib("libshared.so")

	res, err := Enhance(EnhanceInput{
		Modules: map[string][]Linkable{
			"app": {a, shared},
		},
		AssetModules: map[string][]Linkable{
			"art": {shared},
		},
		Platforms: testPlatforms,
		Linker:    &testLinker{},
	})
	if err != nil {
		t.Fatalf("Enhance: %s", err)
	}

	// A library also consumed as an asset is an asset everywhere and
	// stays out of the non-asset buckets.
	app := res.Merged["app"]
	if len(app) != 1 || app[0].Soname() != "liba.so" {
		t.Errorf("app bucket = %v, want [liba.so]", sonames(app))
	}
	art := res.MergedAssets["art"]
	if len(art) != 1 || art[0].Soname() != "libshared.so" || !art[0].IsAsset() {
		t.Errorf("art asset bucket = %v, want [libshared.so]", sonames(art))
	}
}

func TestEnhanceGlueNotLinkable(t *testing.T) {
	_, err := Enhance(EnhanceInput{
		Modules: map[string][]Linkable{
			"app": {lib("liba.so")},
		},
		Glue:      "libglue.so",
		Platforms: testPlatforms,
		Linker:    &testLinker{},
	})
	if err == nil {
		t.Fatal("Enhance succeeded, want glue error")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestEnhanceCycle(t *testing.T) {
	a := lib("liba.so", "libb.so")
	b := lib("libb.so", "liba.so")

	_, err := Enhance(EnhanceInput{
		Modules:   map[string][]Linkable{"app": {a, b}},
		Platforms: testPlatforms,
		Linker:    &testLinker{},
	})
	if err == nil {
		t.Fatal("Enhance succeeded, want cycle error")
	}
	if _, ok := err.(*CycleError); !ok {
		t.Errorf("error type = %T, want *CycleError", err)
	}
}

func sonames(linkables []*MergedLinkable) []string {
	out := make([]string, 0, len(linkables))
	for _, m := range linkables {
		out = append(out, m.Soname())
	}
	return out
}
