package scope

import (
	"testing"

	"whence/internal/source"
)

func TestFromIdentifier(t *testing.T) {
	tests := []struct {
		id   string
		want Language
	}{
		{"go", LangGo},
		{"golang", LangGo},
		{"typescriptreact", LangTSX},
		{"javascriptreact", LangJavaScript},
		{"c++", LangCpp},
		{"c#", LangCSharp},
		{"shellscript", LangBash},
		{"Python", LangPython},
		{"cobol", LangUnknown},
		{"", LangUnknown},
	}

	for _, tt := range tests {
		if got := FromIdentifier(tt.id); got != tt.want {
			t.Errorf("FromIdentifier(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"internal/app/server.go", LangGo},
		{"src/App.tsx", LangTSX},
		{"lib/util.cpp", LangCpp},
		{"scripts/deploy.sh", LangBash},
		{"vendor/lib.rb", LangRuby},
		{"README", LangUnknown},
		{"Makefile", LangUnknown},
	}

	for _, tt := range tests {
		if got := FromPath(tt.path); got != tt.want {
			t.Errorf("FromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestEveryLanguageHasContainerTable(t *testing.T) {
	for _, lang := range Supported {
		table := containerTables[lang]
		if lang == LangTSX {
			table = containerTables[LangTypeScript]
		}
		if len(table) == 0 {
			t.Errorf("language %q has no container table", lang)
		}
	}
}

func TestChainPath(t *testing.T) {
	chain := Chain{
		{Kind: KindMethod, Name: "Get"},
		{Kind: KindClass, Name: "Handler"},
	}
	want := "class: Handler -> method: Get"
	if got := chain.Path(); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	if (Chain{}).Path() != "" {
		t.Error("empty chain must render as empty path")
	}
}

func TestOutermostNamed(t *testing.T) {
	nameRange := source.Range{FilePath: "a.go", StartLine: 3, EndLine: 3}
	chain := Chain{
		{Kind: KindFunction, Name: "inner", NameRange: &nameRange},
		{Kind: KindFunction, Name: AnonymousName},
		{Kind: KindClass, Name: "Outer", NameRange: &nameRange},
	}

	node, ok := chain.OutermostNamed()
	if !ok {
		t.Fatal("expected a named node")
	}
	if node.Name != "Outer" {
		t.Errorf("OutermostNamed() = %q, want the broadest named container %q", node.Name, "Outer")
	}

	anonOnly := Chain{{Kind: KindFunction, Name: AnonymousName}}
	if _, ok := anonOnly.OutermostNamed(); ok {
		t.Error("chain without name ranges must report no anchor")
	}
}

func TestChainValidate(t *testing.T) {
	target := source.Range{FilePath: "a.go", StartLine: 5, EndLine: 9}
	good := Chain{
		{Kind: KindFunction, Name: "f", BodyRange: source.Range{FilePath: "a.go", StartLine: 4, EndLine: 12}},
		{Kind: KindClass, Name: "C", BodyRange: source.Range{FilePath: "a.go", StartLine: 1, EndLine: 40}},
	}
	if err := good.Validate(target); err != nil {
		t.Errorf("valid chain rejected: %v", err)
	}

	bad := Chain{
		{Kind: KindFunction, Name: "f", BodyRange: source.Range{FilePath: "a.go", StartLine: 1, EndLine: 40}},
		{Kind: KindClass, Name: "C", BodyRange: source.Range{FilePath: "a.go", StartLine: 4, EndLine: 12}},
	}
	if err := bad.Validate(target); err == nil {
		t.Error("inverted nesting must fail validation")
	}
}
