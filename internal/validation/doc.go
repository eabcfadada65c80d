// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

/*
Package validation checks decoded API request bodies against their validate
struct tags using go-playground/validator v10.

A single validator instance is shared by all handlers; it caches struct
metadata after the first call. Field names in errors are the json names so a
client sees the same key it sent:

	type joinRequest struct {
	    Code string `json:"code" validate:"required,roomcode"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError() // Code is VALIDATION_ERROR
	    ...
	}

Custom tags:

  - roomcode: 4 to 12 letters or digits, case-insensitive, surrounding
    whitespace ignored
  - notblank: string with at least one non-space character

Validation here covers request shape only. Rules that depend on room state or
configuration (message length limits, participant caps) are enforced by the
party package.
*/
package validation
