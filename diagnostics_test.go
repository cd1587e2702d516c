// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdhender/exprtree"
)

func TestPrintDiagnostic_StructuralError(t *testing.T) {
	src := "(a+b]"
	_, err := exprtree.Parse(src)
	diag, ok := exprtree.DiagnosticOf(err)
	if !ok {
		t.Fatalf("DiagnosticOf(%v): want ok", err)
	}
	var buf bytes.Buffer
	exprtree.PrintDiagnostic(&buf, diag, "expr", []byte(src))
	want := "expr:1:5: error: mismatched brackets\n" +
		"    (a+b]\n" +
		"        ^\n" +
		"    note: \"(\" at 1:1 is closed by \"]\"\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintDiagnostic_SecondLine(t *testing.T) {
	src := "(a + b)\n  * (c"
	_, err := exprtree.Parse(src)
	diag, ok := exprtree.DiagnosticOf(err)
	if !ok {
		t.Fatalf("DiagnosticOf(%v): want ok", err)
	}
	var buf bytes.Buffer
	exprtree.PrintDiagnostic(&buf, diag, "expr", []byte(src))
	want := "expr:2:5: error: opening bracket is never closed\n" +
		"      * (c\n" +
		"        ^\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintDiagnostic_Warning(t *testing.T) {
	src := "x = (a+b-c)"
	p, err := exprtree.NewParser(exprtree.WithOperatorCheck(exprtree.OperatorCheckWarn))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse(src); err != nil {
		t.Fatal(err)
	}
	diags := p.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	var buf bytes.Buffer
	exprtree.PrintDiagnostic(&buf, diags[0], "expr", []byte(src))
	want := "expr:1:5: warn: group mixes operators\n" +
		"    x = (a+b-c)\n" +
		"        ^\n" +
		"    note: operators [\"+\" \"-\"]; groups have no precedence, add parentheses\n" +
		"    note: treating the group as \"+\"\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
}

func TestDiagnosticOf_OtherErrors(t *testing.T) {
	if _, ok := exprtree.DiagnosticOf(fmt.Errorf("plain")); ok {
		t.Errorf("plain error: want !ok")
	}
	if got := exprtree.ErrorCode(fmt.Errorf("plain")); got != exprtree.ErrCodeUnknown {
		t.Errorf("code = %q, want %q", got, exprtree.ErrCodeUnknown)
	}
	wrapped := fmt.Errorf("rule %q: %w", "x", &exprtree.MixedOperatorError{Operators: []string{"+", "*"}})
	if got := exprtree.ErrorCode(wrapped); got != exprtree.ErrCodeMixedOperators {
		t.Errorf("code = %q, want %q", got, exprtree.ErrCodeMixedOperators)
	}
	if _, ok := exprtree.DiagnosticOf(wrapped); !ok {
		t.Errorf("wrapped mixed operator error: want ok")
	}
}
