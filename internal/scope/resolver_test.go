//go:build cgo

package scope

import (
	"context"
	"testing"

	"whence/internal/errors"
	"whence/internal/source"
)

func resolve(t *testing.T, src string, lang Language, start, end int) Chain {
	t.Helper()
	r := NewResolver()
	target := source.Range{FilePath: "test." + string(lang), StartLine: start, EndLine: end}
	chain, err := r.Resolve(context.Background(), []byte(src), lang, target)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := chain.Validate(target); err != nil {
		t.Fatalf("containment invariant violated: %v", err)
	}
	return chain
}

func TestResolveGoMethod(t *testing.T) {
	src := `package main

type Handler struct {
	db *Database
}

func (h *Handler) Get(id string) (*Item, error) {
	item, err := h.db.Find(id)
	if err != nil {
		return nil, err
	}
	return item, nil
}
`
	chain := resolve(t, src, LangGo, 9, 10)

	if len(chain) == 0 {
		t.Fatal("expected a non-empty chain")
	}
	inner, _ := chain.Innermost()
	if inner.Kind != KindMethod || inner.Name != "Get" {
		t.Errorf("innermost = %s %q, want method Get", inner.Kind, inner.Name)
	}
	if inner.NameRange == nil {
		t.Error("method Get should have a name range")
	}
}

func TestResolveFullFunctionSelection(t *testing.T) {
	// Highlighting a whole function, closing brace included, must keep that
	// function in its own chain.
	src := `package main

func area(r float64) float64 {
	return 3.14159 * r * r
}
`
	chain := resolve(t, src, LangGo, 3, 5)

	if len(chain) != 1 {
		t.Fatalf("expected the enclosing function, got %d containers: %s", len(chain), chain.Path())
	}
	if chain[0].Name != "area" || chain[0].Kind != KindFunction {
		t.Errorf("got %s %q, want function area", chain[0].Kind, chain[0].Name)
	}
}

func TestResolvePythonFunctionInClass(t *testing.T) {
	src := `class Circle:
    def __init__(self, r):
        self.r = r

    def area(self):
        return 3.14159 * self.r * self.r
`
	chain := resolve(t, src, LangPython, 6, 6)

	if len(chain) != 2 {
		t.Fatalf("expected 2 containers, got %d: %s", len(chain), chain.Path())
	}
	if chain[0].Name != "area" || chain[0].Kind != KindFunction {
		t.Errorf("innermost = %s %q, want function area", chain[0].Kind, chain[0].Name)
	}
	if chain[1].Name != "Circle" || chain[1].Kind != KindClass {
		t.Errorf("outermost = %s %q, want class Circle", chain[1].Kind, chain[1].Name)
	}
}

func TestResolveAnonymousFunction(t *testing.T) {
	src := `const handler = (req, res) => {
	res.send("ok");
};
`
	chain := resolve(t, src, LangJavaScript, 2, 2)

	if len(chain) == 0 {
		t.Fatal("expected a non-empty chain")
	}
	inner, _ := chain.Innermost()
	if inner.Name != AnonymousName {
		t.Errorf("arrow function named %q, want %q", inner.Name, AnonymousName)
	}
	if inner.NameRange != nil {
		t.Error("anonymous function must not carry a name range")
	}
}

func TestResolveCDeclaratorDescent(t *testing.T) {
	src := `#include <stdio.h>

static int *find_slot(struct table *t, int key) {
	return &t->slots[key % t->cap];
}
`
	chain := resolve(t, src, LangC, 4, 4)

	if len(chain) == 0 {
		t.Fatal("expected a non-empty chain")
	}
	inner, _ := chain.Innermost()
	if inner.Name != "find_slot" {
		t.Errorf("function named %q, want find_slot (declarator descent)", inner.Name)
	}
}

func TestResolveRustTrait(t *testing.T) {
	src := `trait Shape {
    fn area(&self) -> f64;
}

impl Shape for Circle {
    fn area(&self) -> f64 {
        3.14159 * self.r * self.r
    }
}
`
	chain := resolve(t, src, LangRust, 7, 7)

	if len(chain) < 2 {
		t.Fatalf("expected function inside impl, got: %s", chain.Path())
	}
	if chain[0].Name != "area" {
		t.Errorf("innermost %q, want area", chain[0].Name)
	}
	if chain[1].Kind != KindType {
		t.Errorf("outer kind %s, want type (impl block)", chain[1].Kind)
	}
}

func TestResolveBashFunction(t *testing.T) {
	src := `#!/bin/bash

deploy() {
	echo "deploying"
}
`
	chain := resolve(t, src, LangBash, 4, 4)

	if len(chain) != 1 || chain[0].Name != "deploy" {
		t.Fatalf("expected function deploy, got: %s", chain.Path())
	}
}

func TestResolveMultibyteContent(t *testing.T) {
	// Non-ASCII above the target must not shift byte-offset containment.
	src := `# aide mémoire: géométrie

def area(r):
    return 3.14159 * r * r
`
	chain := resolve(t, src, LangPython, 4, 4)

	if len(chain) != 1 || chain[0].Name != "area" {
		t.Fatalf("expected function area, got: %s", chain.Path())
	}
}

func TestResolveUnsupportedLanguage(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve(context.Background(), []byte("x"), LangUnknown,
		source.Range{FilePath: "f", StartLine: 1, EndLine: 1})
	if errors.CodeOf(err) != errors.ParseUnavailable {
		t.Errorf("expected ParseUnavailable, got %v", err)
	}
}

func TestResolveStaleRange(t *testing.T) {
	r := NewResolver()
	chain, err := r.Resolve(context.Background(), []byte("short\n"), LangGo,
		source.Range{FilePath: "f.go", StartLine: 50, EndLine: 60})
	if err != nil {
		t.Fatalf("stale range must not error: %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("stale range must yield an empty chain, got %d nodes", len(chain))
	}
}

func TestResolveTopLevelSelection(t *testing.T) {
	src := `package main

import "fmt"

var x = 1
`
	chain := resolve(t, src, LangGo, 3, 3)
	if len(chain) != 0 {
		t.Errorf("top-level import has no container, got: %s", chain.Path())
	}
}

func TestResolveMalformedSource(t *testing.T) {
	// Tree-sitter produces a partial tree for broken input; resolution must
	// not fail outright.
	src := "func broken( {{{\n\tx :=\n"
	r := NewResolver()
	_, err := r.Resolve(context.Background(), []byte(src), LangGo,
		source.Range{FilePath: "f.go", StartLine: 2, EndLine: 2})
	if err != nil {
		t.Fatalf("malformed source must degrade, not error: %v", err)
	}
}
