// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mdhender/exprtree"
	"github.com/mdhender/exprtree/rules"
)

// RuleRow is a compiled rule as stored. The trees are kept as JSON.
type RuleRow struct {
	ID          int64
	Name        string
	Text        string
	Require     string
	TreeJSON    string
	RequireJSON string // empty when the rule has no requirement
	IsRewrite   bool
	CreatedAt   time.Time
}

// Tree decodes the stored rule tree.
func (r *RuleRow) Tree() (exprtree.Node, error) {
	return exprtree.UnmarshalNode([]byte(r.TreeJSON))
}

// Requirement decodes the stored requirement, or returns nil if there is none.
func (r *RuleRow) Requirement() (exprtree.Node, error) {
	if r.RequireJSON == "" {
		return nil, nil
	}
	return exprtree.UnmarshalNode([]byte(r.RequireJSON))
}

// Stats holds store statistics.
type Stats struct {
	Rules    int
	Rewrites int
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertRule inserts a compiled rule and returns its assigned ID.
// It fails if a rule with the same name exists.
func (s *SQLiteStore) InsertRule(ctx context.Context, cr *rules.Compiled) (int64, error) {
	const query = `
		INSERT INTO rules (name, text, require, tree_json, require_json, is_rewrite, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := execRule(ctx, s.db, query, cr)
	if err != nil {
		return 0, fmt.Errorf("insert rule %q: %w", cr.Name, err)
	}
	return id, nil
}

// SaveCatalog inserts or replaces every rule in one transaction.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, compiled []*rules.Compiled) error {
	const query = `
		INSERT INTO rules (name, text, require, tree_json, require_json, is_rewrite, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			text = excluded.text,
			require = excluded.require,
			tree_json = excluded.tree_json,
			require_json = excluded.require_json,
			is_rewrite = excluded.is_rewrite,
			created_at = excluded.created_at
	`
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, cr := range compiled {
		if _, err := execRule(ctx, tx, query, cr); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save rule %q: %w", cr.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func execRule(ctx context.Context, db execer, query string, cr *rules.Compiled) (int64, error) {
	tree, err := json.Marshal(cr.Tree)
	if err != nil {
		return 0, err
	}
	var require []byte
	if cr.Requirement != nil {
		if require, err = json.Marshal(cr.Requirement); err != nil {
			return 0, err
		}
	}
	result, err := db.ExecContext(ctx, query,
		cr.Name,
		cr.Text,
		cr.Require,
		string(tree),
		string(require),
		boolToInt(cr.IsRewrite()),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const selectRule = `SELECT id, name, text, require, tree_json, require_json, is_rewrite, created_at FROM rules`

// GetRuleByName returns the named rule, or nil if it is not stored.
func (s *SQLiteStore) GetRuleByName(ctx context.Context, name string) (*RuleRow, error) {
	row := s.db.QueryRowContext(ctx, selectRule+` WHERE name = ?`, name)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get rule %q: %w", name, err)
	}
	return r, nil
}

// ListRules returns every stored rule in insertion order.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]RuleRow, error) {
	rows, err := s.db.QueryContext(ctx, selectRule+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var list []RuleRow
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		list = append(list, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// Stats returns row counts.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	const query = `SELECT COUNT(*), COALESCE(SUM(is_rewrite), 0) FROM rules`
	if err := s.db.QueryRowContext(ctx, query).Scan(&st.Rules, &st.Rewrites); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*RuleRow, error) {
	var r RuleRow
	var isRewrite int64
	var createdAt string
	if err := row.Scan(&r.ID, &r.Name, &r.Text, &r.Require, &r.TreeJSON, &r.RequireJSON, &isRewrite, &createdAt); err != nil {
		return nil, err
	}
	r.IsRewrite = isRewrite != 0
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
