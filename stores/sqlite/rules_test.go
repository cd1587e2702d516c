// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mdhender/exprtree"
	"github.com/mdhender/exprtree/rules"
	store "github.com/mdhender/exprtree/stores/sqlite"
)

func compileDefault(t *testing.T) []*rules.Compiled {
	t.Helper()
	c, err := rules.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	compiled, err := rules.Compile(context.Background(), c, 0)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return compiled
}

func TestSQLiteStore_SaveCatalog(t *testing.T) {
	ctx := context.Background()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer sqlStore.Close()

	compiled := compileDefault(t)
	if err := sqlStore.SaveCatalog(ctx, compiled); err != nil {
		t.Fatalf("save catalog: %v", err)
	}
	// saving again replaces rows instead of failing on the unique name
	if err := sqlStore.SaveCatalog(ctx, compiled); err != nil {
		t.Fatalf("save catalog again: %v", err)
	}

	stats, err := sqlStore.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Rules != len(compiled) {
		t.Errorf("rules = %d, want %d", stats.Rules, len(compiled))
	}
	rewrites := 0
	for _, cr := range compiled {
		if cr.IsRewrite() {
			rewrites++
		}
	}
	if stats.Rewrites != rewrites {
		t.Errorf("rewrites = %d, want %d", stats.Rewrites, rewrites)
	}

	list, err := sqlStore.ListRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != len(compiled) {
		t.Fatalf("list = %d rows, want %d", len(list), len(compiled))
	}
	for i, row := range list {
		if row.Name != compiled[i].Name {
			t.Errorf("row %d: name = %q, want %q", i, row.Name, compiled[i].Name)
		}
	}
}

func TestSQLiteStore_GetRuleByName(t *testing.T) {
	ctx := context.Background()
	sqlStore, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer sqlStore.Close()

	cr, err := rules.CompileRule(rules.Rule{Name: "diff constant", Text: "D[a+c] = D[a]", Require: "D[c] = 0"})
	if err != nil {
		t.Fatal(err)
	}
	id, err := sqlStore.InsertRule(ctx, cr)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := sqlStore.InsertRule(ctx, cr); err == nil {
		t.Errorf("insert duplicate: want error")
	}

	row, err := sqlStore.GetRuleByName(ctx, "diff constant")
	if err != nil {
		t.Fatalf("get: %v", err)
	} else if row == nil {
		t.Fatalf("get: rule not found")
	}
	if row.ID != id || !row.IsRewrite || row.Require != "D[c] = 0" {
		t.Errorf("row = %+v", row)
	}
	if row.CreatedAt.IsZero() {
		t.Errorf("created_at: want a timestamp")
	}
	tree, err := row.Tree()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !exprtree.Equal(cr.Tree, tree) {
		t.Errorf("tree does not match the compiled rule")
	}
	req, err := row.Requirement()
	if err != nil {
		t.Fatalf("requirement: %v", err)
	}
	if !exprtree.Equal(cr.Requirement, req) {
		t.Errorf("requirement does not match the compiled rule")
	}

	missing, err := sqlStore.GetRuleByName(ctx, "missing")
	if err != nil || missing != nil {
		t.Errorf("get missing: got %v, %v, want nil, nil", missing, err)
	}
}

func TestInitDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.db")

	if _, err := store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: path}); err == nil {
		t.Fatalf("open before init: want error")
	}
	if err := store.InitDatabase(path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.InitDatabase(path); err == nil {
		t.Errorf("init twice: want error")
	}

	sqlStore, err := store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlStore.Close()
	if err := sqlStore.SaveCatalog(ctx, compileDefault(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	row, err := sqlStore.GetRuleByName(ctx, "div intro")
	if err != nil || row == nil {
		t.Fatalf("get: %v, %v", row, err)
	}
	if row.IsRewrite {
		t.Errorf("div intro: is_rewrite = true, want false")
	}
}
