// Cinegraph - Graph-Based Film Recommendations
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Username string `validate:"required,min=3,max=10"`
	GenreIDs []int  `validate:"omitempty,min=1,dive,gte=1"`
}

func TestValidateStructPasses(t *testing.T) {
	req := sampleRequest{Username: "alice", GenreIDs: []int{1, 2}}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected pass, got %v", err)
	}
}

func TestValidateStructFails(t *testing.T) {
	tests := []struct {
		name      string
		req       sampleRequest
		wantField string
	}{
		{"missing username", sampleRequest{}, "Username"},
		{"username too short", sampleRequest{Username: "ab"}, "Username"},
		{"username too long", sampleRequest{Username: "abcdefghijkl"}, "Username"},
		{"bad genre id", sampleRequest{Username: "alice", GenreIDs: []int{0}}, "GenreIDs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			fields := err.Fields()
			if len(fields) == 0 {
				t.Fatal("expected field errors")
			}
			if !strings.Contains(fields[0].Field, tt.wantField) {
				t.Errorf("field = %q, want %q", fields[0].Field, tt.wantField)
			}
			if fields[0].Message == "" {
				t.Error("expected a human-readable message")
			}
		})
	}
}

func TestErrorJoinsMessages(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Username: "", GenreIDs: []int{0}})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), ";") && len(err.Fields()) > 1 {
		t.Errorf("combined message = %q", err.Error())
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance")
	}
}
