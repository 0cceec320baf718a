// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package graph

import (
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var _ Store = (*Neo4j)(nil)

func countRecord(n int64) []*neo4j.Record {
	return []*neo4j.Record{{Keys: []string{"n"}, Values: []any{n}}}
}

// The edge merge aggregates with count(*), which yields exactly one
// record even when both endpoints are missing. Missing endpoints must
// be detected from the aggregated value, not the record count.
func TestMergedEdgeCount(t *testing.T) {
	tests := []struct {
		name    string
		records []*neo4j.Record
		want    int
	}{
		{"no records", nil, 0},
		{"both endpoints missing", countRecord(0), 0},
		{"edge merged", countRecord(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergedEdgeCount(tt.records); got != tt.want {
				t.Errorf("mergedEdgeCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSchemaEnforcesUsernameUniqueness(t *testing.T) {
	for _, stmt := range neo4jSchema {
		if strings.Contains(stmt, "u.username IS UNIQUE") {
			return
		}
	}
	t.Error("schema statements do not enforce username uniqueness")
}

func TestRecordCoercion(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"id", "title", "vote_average"},
		Values: []any{int64(42), "Alien", 7.9},
	}

	if got := recInt(rec, "id"); got != 42 {
		t.Errorf("recInt(id) = %d, want 42", got)
	}
	if got := recString(rec, "title"); got != "Alien" {
		t.Errorf("recString(title) = %q, want %q", got, "Alien")
	}
	if got := recFloat(rec, "vote_average"); got != 7.9 {
		t.Errorf("recFloat(vote_average) = %v, want 7.9", got)
	}
	if got := recInt(rec, "missing"); got != 0 {
		t.Errorf("recInt(missing) = %d, want 0", got)
	}
}
