// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package renderer_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdhender/exprtree"
	"github.com/mdhender/exprtree/renderer"
)

func TestInfix(t *testing.T) {
	r, err := renderer.New()
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"a", "a"},
		{"a+b", "a + b"},
		{"(a+b)*c", "(a + b) * c"},
		{"Diff[x]", "Diff[x]"},
		{"Diff[a+b]", "Diff[a + b]"},
		{"Diff[(a+b)]", "Diff[(a + b)]"},
		{"f[]", "f[]"},
		{"a - 5", "a - 5"},
		{"a + -5", "a + -5"},
		{"(x^n) = (n*(x^(n - 1)))", "(x ^ n) = (n * (x ^ (n - 1)))"},
	} {
		node, err := exprtree.Parse(tc.input)
		if err != nil {
			t.Errorf("%q: parse: %v", tc.input, err)
			continue
		}
		got := r.Infix(node)
		if got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.input, got, tc.want)
		}
		again, err := exprtree.Parse(got)
		if err != nil {
			t.Errorf("%q: reparse %q: %v", tc.input, got, err)
			continue
		}
		if !exprtree.Equal(node, again) {
			t.Errorf("%q: reparse %q gives a different tree", tc.input, got)
		}
	}
}

func TestInfix_OuterParens(t *testing.T) {
	r, err := renderer.New(renderer.WithOuterParens(true))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Infix(exprtree.NewInfixGroup("+", exprtree.NewAtom("a"), exprtree.NewAtom("1"))); got != "(a + 1)" {
		t.Errorf("got %q, want %q", got, "(a + 1)")
	}
}

func TestOutline(t *testing.T) {
	node, err := exprtree.Parse("Diff[x] = 1 + y")
	if err != nil {
		t.Fatal(err)
	}

	r, err := renderer.New()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := r.Outline(&buf, node); err != nil {
		t.Fatal(err)
	}
	want := `infix "="
  call Diff ""
    atom x
  number 1
  atom y
`
	// mixed operators are not checked by default; "=" wins
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}

	r, err = renderer.New(renderer.WithIndent(". "), renderer.WithSpans(true))
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := r.Outline(&buf, exprtree.NewCallGroup("f", ",", exprtree.NewAtom("a"), exprtree.NewAtom("b"))); err != nil {
		t.Fatal(err)
	}
	want = `call f ","
. atom a
. atom b
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
}
