package merge

import (
	"testing"

	"github.com/google/blueprint/proptools"
)

func TestParseGroups(t *testing.T) {
	testCases := []struct {
		name    string
		props   []GroupProperties
		wantErr bool
	}{
		{
			name: "valid",
			props: []GroupProperties{
				{Output: proptools.StringPtr("libmerged.so"), Patterns: []string{"^lib.*util"}},
			},
		},
		{
			name: "missing output",
			props: []GroupProperties{
				{Patterns: []string{"libfoo"}},
			},
			wantErr: true,
		},
		{
			name: "no patterns",
			props: []GroupProperties{
				{Output: proptools.StringPtr("libmerged.so")},
			},
			wantErr: true,
		},
		{
			name: "invalid pattern",
			props: []GroupProperties{
				{Output: proptools.StringPtr("libmerged.so"), Patterns: []string{"lib[foo"}},
			},
			wantErr: true,
		},
		{
			name: "duplicate output",
			props: []GroupProperties{
				{Output: proptools.StringPtr("libmerged.so"), Patterns: []string{"liba"}},
				{Output: proptools.StringPtr("libmerged.so"), Patterns: []string{"libb"}},
			},
			wantErr: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := ParseGroups(testCase.props)
			if (err != nil) != testCase.wantErr {
				t.Errorf("ParseGroups error = %v, wantErr %v", err, testCase.wantErr)
			}
			if err != nil {
				if _, ok := err.(*ConfigError); !ok {
					t.Errorf("ParseGroups error type = %T, want *ConfigError", err)
				}
			}
		})
	}
}

func TestGroupMatchIsSearch(t *testing.T) {
	groups := makeGroups(t, [2]string{"libmerged.so", "util"})

	testCases := []struct {
		identity string
		want     bool
	}{
		{"libutil.so", true},
		{"libstringutil.so", true},
		{"libutility_extra.so", true},
		{"libother.so", false},
	}

	for _, testCase := range testCases {
		if got := groups[0].match(testCase.identity); got != testCase.want {
			t.Errorf("match(%q) = %v, want %v", testCase.identity, got, testCase.want)
		}
	}
}

func TestAsLinkable(t *testing.T) {
	if l, err := AsLinkable(nil); err != nil || l != nil {
		t.Errorf("AsLinkable(nil) = %v, %v, want nil, nil", l, err)
	}

	want := lib("libglue.so")
	if l, err := AsLinkable(want); err != nil || l != Linkable(want) {
		t.Errorf("AsLinkable(linkable) = %v, %v, want %v, nil", l, err, want)
	}

	_, err := AsLinkable("libglue.so")
	if err == nil {
		t.Fatal("AsLinkable(string) succeeded, want error")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("AsLinkable error type = %T, want *ConfigError", err)
	}
}
