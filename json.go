// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package exprtree

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Trees encode to JSON in a compact form:
//
//	atom        "a"
//	infix group {"op":"+","a":["a","b"]}
//	call group  {"fn":"Diff","op":",","a":["x","y"]}
//
// Spans are not encoded. Text that is not valid UTF-8 cannot be
// represented in JSON without changing it, so encoding fails with
// ErrInvalidUTF8 instead.

type groupJSON struct {
	Fn string            `json:"fn,omitempty"`
	Op string            `json:"op,omitempty"`
	A  []json.RawMessage `json:"a"`
}

func (a *Atom) MarshalJSON() ([]byte, error) {
	if !utf8.ValidString(a.Text) {
		return nil, fmt.Errorf("%w: atom %q", ErrInvalidUTF8, a.Text)
	}
	return json.Marshal(a.Text)
}

func (g *InfixGroup) MarshalJSON() ([]byte, error) {
	return marshalGroup("", g.Operator, g.Args)
}

func (g *CallGroup) MarshalJSON() ([]byte, error) {
	return marshalGroup(g.Function, g.Operator, g.Args)
}

func marshalGroup(fn, op string, args []Node) ([]byte, error) {
	if !utf8.ValidString(fn) {
		return nil, fmt.Errorf("%w: function %q", ErrInvalidUTF8, fn)
	} else if !utf8.ValidString(op) {
		return nil, fmt.Errorf("%w: operator %q", ErrInvalidUTF8, op)
	}
	v := groupJSON{Fn: fn, Op: op, A: make([]json.RawMessage, 0, len(args))}
	for _, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return nil, err
		}
		v.A = append(v.A, data)
	}
	return json.Marshal(v)
}

// UnmarshalNode decodes a tree produced by json.Marshal on a Node.
// The decoded nodes have empty spans.
func UnmarshalNode(data []byte) (Node, error) {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return NewAtom(text), nil
	}
	var v groupJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	args := make([]Node, 0, len(v.A))
	for _, raw := range v.A {
		arg, err := UnmarshalNode(raw)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if v.Fn != "" {
		return NewCallGroup(v.Fn, v.Op, args...), nil
	} else if v.Op == "" {
		return nil, fmt.Errorf("decode node: group has neither fn nor op")
	}
	return NewInfixGroup(v.Op, args...), nil
}
