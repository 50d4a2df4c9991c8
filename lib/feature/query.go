// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package feature

import (
	"context"
	"math"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/featured-io/featured/lib/toolerror"
)

// Limits for the sampling and search operations. Values outside these
// ranges are rejected before any store access.
const (
	RegressionLimitDefault = 3
	RegressionLimitMax     = 10

	SearchLimitDefault = 10
	SearchLimitMax     = 50
)

// Stats summarizes overall backlog progress.
type Stats struct {
	Passing    int64   `json:"passing"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Stats returns the number of passing features, the total, and the
// completion percentage rounded to one decimal place. An empty backlog
// reports 0.0 percent.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Stats{}, takeErr("stats", err)
	}
	defer s.pool.Put(conn)

	var stats Stats
	err = sqlitex.Execute(conn,
		"SELECT COUNT(*), COALESCE(SUM(passes), 0) FROM features",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.Total = stmt.ColumnInt64(0)
				stats.Passing = stmt.ColumnInt64(1)
				return nil
			},
		})
	if err != nil {
		return Stats{}, toolerror.Internal("feature store: stats: %w", err)
	}

	if stats.Total > 0 {
		ratio := float64(stats.Passing) / float64(stats.Total) * 100
		stats.Percentage = math.Round(ratio*10) / 10
	}
	return stats, nil
}

// NextPending returns the pending feature with the smallest
// (priority, id), or nil when every feature passes. Deterministic:
// repeated calls on unchanged state return the same feature.
func (s *Store) NextPending(ctx context.Context) (*Feature, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, takeErr("next", err)
	}
	defer s.pool.Put(conn)

	var next *Feature
	err = sqlitex.Execute(conn,
		"SELECT "+featureColumns+" FROM features WHERE passes = 0 ORDER BY priority ASC, id ASC LIMIT 1",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				f, err := scanFeature(stmt)
				if err != nil {
					return err
				}
				next = &f
				return nil
			},
		})
	if err != nil {
		return nil, toolerror.Internal("feature store: next: %w", err)
	}
	return next, nil
}

// RegressionSample returns up to limit passing features chosen
// uniformly at random without replacement, for re-verifying prior
// work. Fewer than limit passing features returns them all. The
// selection is non-deterministic by contract.
func (s *Store) RegressionSample(ctx context.Context, limit int64) ([]Feature, error) {
	if limit < 1 || limit > RegressionLimitMax {
		return nil, toolerror.Validation("limit must be between 1 and %d, got %d", RegressionLimitMax, limit)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, takeErr("regression sample", err)
	}
	defer s.pool.Put(conn)

	var sample []Feature
	err = sqlitex.Execute(conn,
		"SELECT "+featureColumns+" FROM features WHERE passes = 1 ORDER BY RANDOM() LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				f, err := scanFeature(stmt)
				if err != nil {
					return err
				}
				sample = append(sample, f)
				return nil
			},
		})
	if err != nil {
		return nil, toolerror.Internal("feature store: regression sample: %w", err)
	}
	return sample, nil
}

// Categories returns the distinct category names in ascending lexical
// order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, takeErr("categories", err)
	}
	defer s.pool.Put(conn)

	var categories []string
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT category FROM features ORDER BY category ASC",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				categories = append(categories, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, toolerror.Internal("feature store: categories: %w", err)
	}
	return categories, nil
}

// CategorySummary is the per-category slice of a Summary.
type CategorySummary struct {
	Name    string `json:"name"`
	Total   int64  `json:"total"`
	Passing int64  `json:"passing"`
}

// SummaryTotals is the overall slice of a Summary.
type SummaryTotals struct {
	Total   int64 `json:"total"`
	Passing int64 `json:"passing"`
}

// Summary reports per-category progress plus overall totals.
type Summary struct {
	Categories []CategorySummary `json:"categories"`
	Overall    SummaryTotals     `json:"overall"`
}

// Summary returns feature counts grouped by category in ascending
// lexical order, with overall totals. Cheaper for the agent than
// loading every feature when it only needs coverage shape.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Summary{}, takeErr("summary", err)
	}
	defer s.pool.Put(conn)

	summary := Summary{Categories: []CategorySummary{}}
	err = sqlitex.Execute(conn,
		`SELECT category, COUNT(*), COALESCE(SUM(passes), 0)
		 FROM features GROUP BY category ORDER BY category ASC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry := CategorySummary{
					Name:    stmt.ColumnText(0),
					Total:   stmt.ColumnInt64(1),
					Passing: stmt.ColumnInt64(2),
				}
				summary.Categories = append(summary.Categories, entry)
				summary.Overall.Total += entry.Total
				summary.Overall.Passing += entry.Passing
				return nil
			},
		})
	if err != nil {
		return Summary{}, toolerror.Internal("feature store: summary: %w", err)
	}
	return summary, nil
}

// SearchMatch is a single search hit. The full record is deliberately
// omitted — search exists to check for duplicates before creating new
// features, not to load work items.
type SearchMatch struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Passes   bool   `json:"passes"`
}

// Search returns features whose name or description contains the query
// as a case-insensitive substring, ordered by ascending priority (ties
// by id), capped at limit.
func (s *Store) Search(ctx context.Context, query string, limit int64) ([]SearchMatch, error) {
	if query == "" {
		return nil, toolerror.Validation("query is required")
	}
	if limit < 1 || limit > SearchLimitMax {
		return nil, toolerror.Validation("limit must be between 1 and %d, got %d", SearchLimitMax, limit)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, takeErr("search", err)
	}
	defer s.pool.Put(conn)

	// instr on lowered text rather than LIKE: the query is a literal
	// substring, so % and _ in it must not act as wildcards.
	var matches []SearchMatch
	err = sqlitex.Execute(conn,
		`SELECT id, name, category, passes FROM features
		 WHERE instr(lower(name), lower(?)) > 0
		    OR instr(lower(description), lower(?)) > 0
		 ORDER BY priority ASC, id ASC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{query, query, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				matches = append(matches, SearchMatch{
					ID:       stmt.ColumnInt64(0),
					Name:     stmt.ColumnText(1),
					Category: stmt.ColumnText(2),
					Passes:   stmt.ColumnInt(3) != 0,
				})
				return nil
			},
		})
	if err != nil {
		return nil, toolerror.Internal("feature store: search: %w", err)
	}
	return matches, nil
}
