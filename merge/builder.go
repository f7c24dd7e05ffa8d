package merge

import (
	"path/filepath"
	"strings"

	"github.com/google/blueprint"

	"android/libmerge/common"
)

var (
	pctx = blueprint.NewPackageContext("android/libmerge/merge")

	ld = pctx.StaticRule("ld",
		blueprint.RuleParams{
			Command:     "$ldCmd -shared -Wl,-soname,$soname -o $out $in $libFlags",
			Description: "link $out",
		},
		"ldCmd", "soname", "libFlags")

	localizeSymbols = pctx.StaticRule("localizeSymbols",
		blueprint.RuleParams{
			Command:     "$localizeCmd -i $in -o $out -s $symbols",
			Description: "localize symbols $out",
		},
		"localizeCmd", "symbols")
)

// RuleLinker registers ninja rules with the build engine through
// blueprint. Outputs land under OutDir, partitioned by platform.
type RuleLinker struct {
	LdCmd       string
	LocalizeCmd string
	OutDir      string
}

var _ Linker = (*RuleLinker)(nil)

func (l *RuleLinker) LinkShared(ctx BuildContext, p Platform, outputName string,
	inputs []LinkInput, deps []*MergedLinkable) (string, error) {

	var in, implicits, libFlags []string

	for _, input := range inputs {
		if input.WholeArchive {
			libFlags = append(libFlags, "-Wl,--whole-archive")
			libFlags = append(libFlags, input.Files...)
			libFlags = append(libFlags, "-Wl,--no-whole-archive")
			implicits = append(implicits, input.Files...)
		} else {
			in = append(in, input.Files...)
		}
	}

	for _, dep := range deps {
		if dep.PreferredLinkage() == Static {
			depIn, err := dep.StaticLinkInput(ctx, p)
			if err != nil {
				return "", err
			}
			libFlags = append(libFlags, "-Wl,--whole-archive")
			libFlags = append(libFlags, depIn.Files...)
			libFlags = append(libFlags, "-Wl,--no-whole-archive")
			implicits = append(implicits, depIn.Files...)
			continue
		}
		outputs, err := dep.SharedOutputs(ctx, p)
		if err != nil {
			return "", err
		}
		for _, name := range common.SortedStringKeys(outputs) {
			libFlags = append(libFlags, outputs[name])
			implicits = append(implicits, outputs[name])
		}
	}

	out := filepath.Join(l.OutDir, string(p), outputName)

	ctx.Build(pctx, blueprint.BuildParams{
		Rule:      ld,
		Outputs:   []string{out},
		Inputs:    common.FirstUniqueStrings(in),
		Implicits: common.FirstUniqueStrings(implicits),
		Args: map[string]string{
			"ldCmd":    l.LdCmd,
			"soname":   outputName,
			"libFlags": strings.Join(libFlags, " "),
		},
	})

	return out, nil
}

func (l *RuleLinker) LocalizeSymbols(ctx BuildContext, p Platform, input, outputName string,
	symbols []string) (string, error) {

	out := filepath.Join(l.OutDir, string(p), "localized", outputName)

	ctx.Build(pctx, blueprint.BuildParams{
		Rule:      localizeSymbols,
		Outputs:   []string{out},
		Inputs:    []string{input},
		Implicits: []string{l.LocalizeCmd},
		Args: map[string]string{
			"localizeCmd": l.LocalizeCmd,
			"symbols":     strings.Join(symbols, ","),
		},
	})

	return out, nil
}
