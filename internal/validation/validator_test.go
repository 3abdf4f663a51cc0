// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package validation

import (
	"strings"
	"testing"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// ===================================================================================================
// ValidateStruct Tests
// ===================================================================================================

// searchRequest mirrors the query API search shape for validation tests
type searchRequest struct {
	GameType string `validate:"omitempty,oneof=clan ranked random other"`
	Player   string `validate:"omitempty,min=2,max=32"`
	DateFrom string `validate:"omitempty,sortable14"`
	Page     int    `validate:"min=1,max=10000"`
	PageSize int    `validate:"min=1,max=100"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input searchRequest
	}{
		{
			name: "all fields set",
			input: searchRequest{
				GameType: "clan",
				Player:   "SeaRaptor",
				DateFrom: "20250801000000",
				Page:     1,
				PageSize: 30,
			},
		},
		{
			name: "optional fields empty",
			input: searchRequest{
				Page:     1,
				PageSize: 1,
			},
		},
		{
			name: "maximum values",
			input: searchRequest{
				GameType: "other",
				Page:     10000,
				PageSize: 100,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     searchRequest
		wantField string
		wantTag   string
	}{
		{
			name: "unknown game type",
			input: searchRequest{
				GameType: "coop",
				Page:     1,
				PageSize: 30,
			},
			wantField: "GameType",
			wantTag:   "oneof",
		},
		{
			name: "player name too short",
			input: searchRequest{
				Player:   "x",
				Page:     1,
				PageSize: 30,
			},
			wantField: "Player",
			wantTag:   "min",
		},
		{
			name: "page below minimum",
			input: searchRequest{
				Page:     0,
				PageSize: 30,
			},
			wantField: "Page",
			wantTag:   "min",
		},
		{
			name: "page size above maximum",
			input: searchRequest{
				Page:     1,
				PageSize: 500,
			},
			wantField: "PageSize",
			wantTag:   "max",
		},
		{
			name: "malformed sortable datetime",
			input: searchRequest{
				DateFrom: "2025-08-01",
				Page:     1,
				PageSize: 30,
			},
			wantField: "DateFrom",
			wantTag:   "sortable14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}

			found := false
			for _, e := range verr.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %q tag %q, got %v", tt.wantField, tt.wantTag, verr)
			}
		})
	}
}

// ===================================================================================================
// sortable14 Custom Validator Tests
// ===================================================================================================

func TestSortable14(t *testing.T) {
	type wrapper struct {
		Value string `validate:"sortable14"`
	}

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"valid datetime", "20250817143005", true},
		{"all zeros fallback", "00000000000000", true},
		{"too short", "2025081714300", false},
		{"too long", "202508171430055", false},
		{"contains letter", "2025081714300a", false},
		{"contains separator", "20250817-43005", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&wrapper{Value: tt.value})
			if tt.valid && err != nil {
				t.Errorf("value %q should be valid, got %v", tt.value, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("value %q should be invalid", tt.value)
			}
		})
	}
}

// ===================================================================================================
// Error Translation Tests
// ===================================================================================================

func TestToAPIError_SingleError(t *testing.T) {
	input := searchRequest{
		GameType: "coop",
		Page:     1,
		PageSize: 30,
	}

	verr := ValidateStruct(&input)
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "GameType") {
		t.Errorf("Message = %q, want it to mention GameType", apiErr.Message)
	}
	if apiErr.Details["field"] != "GameType" {
		t.Errorf("Details[field] = %v, want GameType", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	input := searchRequest{
		Player:   "x",
		Page:     0,
		PageSize: 500,
	}

	verr := ValidateStruct(&input)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors()) < 2 {
		t.Fatalf("expected multiple errors, got %d", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}

	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has unexpected type %T", apiErr.Details["fields"])
	}
	if len(fields) != len(verr.Errors()) {
		t.Errorf("fields count = %d, want %d", len(fields), len(verr.Errors()))
	}
}

func TestTranslateError_Messages(t *testing.T) {
	type messages struct {
		Name     string `validate:"required"`
		Order    string `validate:"omitempty,oneof=asc desc"`
		Count    int    `validate:"omitempty,gte=1"`
		Sortable string `validate:"omitempty,sortable14"`
	}

	tests := []struct {
		name    string
		input   messages
		wantSub string
	}{
		{
			name:    "required message",
			input:   messages{},
			wantSub: "Name is required",
		},
		{
			name:    "oneof message includes choices",
			input:   messages{Name: "ok", Order: "sideways"},
			wantSub: "must be one of: asc desc",
		},
		{
			name:    "sortable14 message names the format",
			input:   messages{Name: "ok", Sortable: "nope"},
			wantSub: "14-digit sortable datetime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(verr.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", verr.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidateStruct_MinMaxStringMessages(t *testing.T) {
	type strBounds struct {
		Tag string `validate:"min=2,max=5"`
	}

	verr := ValidateStruct(&strBounds{Tag: "x"})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(verr.Error(), "at least 2 characters") {
		t.Errorf("string min message wrong: %q", verr.Error())
	}

	verr = ValidateStruct(&strBounds{Tag: "toolong"})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(verr.Error(), "at most 5 characters") {
		t.Errorf("string max message wrong: %q", verr.Error())
	}
}
