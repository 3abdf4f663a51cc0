// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and user-friendly error
// messages. It integrates with the application's API error format for consistent
// error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Comprehensive error translation to human-readable messages
//   - APIError conversion matching the application's error format
//   - Custom sortable14 validator for 14-digit sortable datetimes
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type SearchRequest struct {
//	    GameType string `validate:"omitempty,oneof=clan ranked random other"`
//	    Player   string `validate:"omitempty,min=2,max=32"`
//	    Page     int    `validate:"min=1,max=10000"`
//	    PageSize int    `validate:"min=1,max=100"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req SearchRequest
//	    if err := json.Decode(r.Body, &req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//   - number: Numeric string (arena IDs arrive as strings)
//   - url: Valid URL format
//
// Numeric validations:
//   - gte=n: Greater than or equal to n
//   - lte=n: Less than or equal to n
//   - min=n: Minimum value n
//   - max=n: Maximum value n
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// Custom validations:
//   - sortable14: Exactly 14 ASCII digits (YYYYMMDDHHMMSS), the sortable
//     datetime format used by listing keys and date-range filters
//
// # Error Types
//
// ValidationError represents a single field validation failure:
//
//	type ValidationError struct {
//	    Field()   string      // Struct field name
//	    Tag()     string      // Validation tag that failed
//	    Param()   string      // Tag parameter (e.g., "100" for max=100)
//	    Value()   interface{} // Actual value that failed
//	    Error()   string      // Human-readable message
//	}
//
// RequestValidationError aggregates multiple field errors:
//
//	type RequestValidationError struct {
//	    Errors() []ValidationError
//	    Error()  string           // Combined message
//	    ToAPIError() *APIError    // Convert to API error format
//	}
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the application format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "GameType must be one of: clan ranked random other",
//	    "details": {"field": "GameType", "tag": "oneof", "value": "coop"}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Player: must be at least 2 characters; Page: must be at least 1",
//	    "details": {
//	        "fields": [
//	            {"field": "Player", "tag": "min", "message": "..."},
//	            {"field": "Page", "tag": "min", "message": "..."}
//	        ]
//	    }
//	}
//
// # Struct Tag Examples
//
// Search request validation:
//
//	type SearchRequest struct {
//	    GameType string `validate:"omitempty,oneof=clan ranked random other"`
//	    MapID    int    `validate:"omitempty,min=1"`
//	    DateFrom string `validate:"omitempty,sortable14"`
//	    DateTo   string `validate:"omitempty,sortable14"`
//	    Page     int    `validate:"min=1,max=10000"`
//	    PageSize int    `validate:"min=1,max=100"`
//	}
//
// Video generation request:
//
//	type GenerateVideoRequest struct {
//	    ArenaUniqueID string `validate:"required,number"`
//	    GameType      string `validate:"required,oneof=clan ranked random other"`
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # Performance
//
// The validator caches struct reflection information:
//   - First validation of a struct type: ~1ms (reflection + caching)
//   - Subsequent validations: ~10us (cached)
//   - Memory: ~500 bytes per cached struct type
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - github.com/go-playground/validator/v10: Underlying library
package validation
