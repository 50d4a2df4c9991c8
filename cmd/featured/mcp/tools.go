// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"

	"github.com/featured-io/featured/lib/feature"
	"github.com/featured-io/featured/lib/toolerror"
)

// decodeArguments unmarshals tools/call arguments into a typed params
// struct. Absent or null arguments leave the struct zeroed so defaults
// apply; malformed JSON or wrong types are validation errors.
func decodeArguments(arguments json.RawMessage, params any) error {
	if len(arguments) == 0 || string(arguments) == "null" {
		return nil
	}
	if err := json.Unmarshal(arguments, params); err != nil {
		return toolerror.Validation("invalid arguments: %w", err)
	}
	return nil
}

// noPendingResult is returned by feature_get_next when every feature
// passes (or the backlog is empty).
type noPendingResult struct {
	Message string `json:"message"`
}

// listResult wraps feature lists with an explicit count so agents need
// not count array elements themselves.
type listResult[T any] struct {
	Features []T `json:"features"`
	Count    int `json:"count"`
}

// categoriesResult is the feature_get_all_categories payload.
type categoriesResult struct {
	Categories []string `json:"categories"`
	Count      int      `json:"count"`
}

// skipResult extends the store's skip outcome with a human-readable
// message for agents that only render text.
type skipResult struct {
	feature.SkipResult
	Message string `json:"message"`
}

var (
	annotationsReadOnly = &toolAnnotations{
		ReadOnlyHint:    boolPtr(true),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
	// Random sampling is read-only but not idempotent.
	annotationsSample = &toolAnnotations{
		ReadOnlyHint:    boolPtr(true),
		DestructiveHint: boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
	annotationsIdempotentWrite = &toolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
	annotationsWrite = &toolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
)

func boolPtr(value bool) *bool {
	return &value
}

// featureTools builds the tool catalog bound to a store.
func featureTools(store *feature.Store) []tool {
	return []tool{
		{
			name:        "feature_get_stats",
			title:       "Backlog statistics",
			description: "Get overall feature completion statistics: passing count, total count, and completion percentage.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
			annotations: annotationsReadOnly,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				return store.Stats(ctx)
			},
		},
		{
			name:        "feature_get_next",
			title:       "Next feature to implement",
			description: "Get the highest-priority pending feature. Returns the full feature record including implementation steps, or a message when no pending features remain.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
			annotations: annotationsReadOnly,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				next, err := store.NextPending(ctx)
				if err != nil {
					return nil, err
				}
				if next == nil {
					return noPendingResult{Message: "No pending features. All features are passing."}, nil
				}
				return next, nil
			},
		},
		{
			name:        "feature_get_for_regression",
			title:       "Regression sample",
			description: "Get a random sample of passing features for regression testing. Returns up to limit features chosen uniformly at random.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {
						"type": "integer",
						"description": "Maximum number of features to return (1-10).",
						"default": 3,
						"minimum": 1,
						"maximum": 10
					}
				},
				"additionalProperties": false
			}`),
			annotations: annotationsSample,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Limit *int64 `json:"limit"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				// A pointer distinguishes an absent limit from an
				// explicit out-of-range zero, which must be rejected.
				limit := int64(feature.RegressionLimitDefault)
				if params.Limit != nil {
					limit = *params.Limit
				}
				sample, err := store.RegressionSample(ctx, limit)
				if err != nil {
					return nil, err
				}
				if sample == nil {
					sample = []feature.Feature{}
				}
				return listResult[feature.Feature]{Features: sample, Count: len(sample)}, nil
			},
		},
		{
			name:        "feature_get_all_categories",
			title:       "Feature categories",
			description: "Get the distinct feature categories in ascending order.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
			annotations: annotationsReadOnly,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				categories, err := store.Categories(ctx)
				if err != nil {
					return nil, err
				}
				if categories == nil {
					categories = []string{}
				}
				return categoriesResult{Categories: categories, Count: len(categories)}, nil
			},
		},
		{
			name:        "feature_get_summary",
			title:       "Per-category summary",
			description: "Get per-category progress (total and passing counts) plus overall totals, without loading full feature records.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
			annotations: annotationsReadOnly,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				return store.Summary(ctx)
			},
		},
		{
			name:        "feature_search",
			title:       "Search features",
			description: "Search features by case-insensitive substring match on name and description. Returns compact matches ordered by priority. Use before creating features to avoid duplicates.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {
						"type": "string",
						"description": "Substring to search for in feature names and descriptions."
					},
					"limit": {
						"type": "integer",
						"description": "Maximum number of matches to return (1-50).",
						"default": 10,
						"minimum": 1,
						"maximum": 50
					}
				},
				"required": ["query"],
				"additionalProperties": false
			}`),
			annotations: annotationsReadOnly,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Query string `json:"query"`
					Limit *int64 `json:"limit"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				limit := int64(feature.SearchLimitDefault)
				if params.Limit != nil {
					limit = *params.Limit
				}
				matches, err := store.Search(ctx, params.Query, limit)
				if err != nil {
					return nil, err
				}
				if matches == nil {
					matches = []feature.SearchMatch{}
				}
				return listResult[feature.SearchMatch]{Features: matches, Count: len(matches)}, nil
			},
		},
		{
			name:        "feature_mark_passing",
			title:       "Mark feature passing",
			description: "Mark a feature as implemented and verified. Idempotent: marking an already-passing feature succeeds.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"feature_id": {
						"type": "integer",
						"description": "ID of the feature to mark as passing."
					}
				},
				"required": ["feature_id"],
				"additionalProperties": false
			}`),
			annotations: annotationsIdempotentWrite,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					FeatureID int64 `json:"feature_id"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				return store.MarkPassing(ctx, params.FeatureID)
			},
		},
		{
			name:        "feature_skip",
			title:       "Skip feature",
			description: "Move a pending feature to the end of the queue by assigning it the lowest priority. Fails for features that already pass.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"feature_id": {
						"type": "integer",
						"description": "ID of the pending feature to move to the back of the queue."
					}
				},
				"required": ["feature_id"],
				"additionalProperties": false
			}`),
			annotations: annotationsWrite,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					FeatureID int64 `json:"feature_id"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				skipped, err := store.Skip(ctx, params.FeatureID)
				if err != nil {
					return nil, err
				}
				return skipResult{
					SkipResult: skipped,
					Message:    "Feature moved to end of queue. It will be revisited after other pending features.",
				}, nil
			},
		},
		{
			name:        "feature_create_bulk",
			title:       "Create features",
			description: "Create multiple features in one atomic batch. Priorities are assigned contiguously: append places the batch after all existing features, prepend places it before all pending work.",
			inputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"features": {
						"type": "array",
						"description": "Features to create, in priority order.",
						"items": {
							"type": "object",
							"properties": {
								"category": {"type": "string", "description": "Feature category."},
								"name": {"type": "string", "description": "Short feature name."},
								"description": {"type": "string", "description": "What the feature does."},
								"steps": {
									"type": "array",
									"items": {"type": "string"},
									"description": "Implementation steps."
								}
							},
							"required": ["category", "name", "description", "steps"]
						},
						"minItems": 1
					},
					"priority_mode": {
						"type": "string",
						"enum": ["append", "prepend"],
						"default": "append",
						"description": "Where the batch lands in the queue."
					},
					"source": {
						"type": "string",
						"default": "initializer",
						"description": "Provenance label for the batch."
					},
					"batch_id": {
						"type": "string",
						"description": "Optional opaque batch identifier."
					}
				},
				"required": ["features"],
				"additionalProperties": false
			}`),
			annotations: annotationsWrite,
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Features     []feature.Draft       `json:"features"`
					PriorityMode *feature.PriorityMode `json:"priority_mode"`
					Source       string                `json:"source"`
					BatchID      string                `json:"batch_id"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				// An absent mode defaults to append; an explicit value,
				// including "", goes to the store's membership check.
				mode := feature.ModeAppend
				if params.PriorityMode != nil {
					mode = *params.PriorityMode
				}
				return store.CreateBulk(ctx, params.Features, mode, params.Source, params.BatchID)
			},
		},
	}
}
