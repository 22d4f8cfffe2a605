// Package validation checks untrusted request input before it reaches the
// access-control core.
//
// # Overview
//
// Identifiers arriving from URLs and request bodies must be canonical UUID
// v4 strings. Free-text fields such as seat labels are trimmed, length
// bounded and stripped of control characters. Every failure is reported as
// a *ValidationError naming the offending field so the HTTP layer can answer
// with a 400 and a field-scoped message.
//
// # Usage Example
//
//	v := validation.NewValidator(nil)
//	result := v.Validate(
//		v.UUIDv4("occupant_id", req.OccupantID),
//		v.Label("label", req.Label),
//	)
//	if !result.Valid {
//		return result.Err()
//	}
//
// Single identifiers can be parsed directly:
//
//	orgID, err := validation.ParseUUIDv4("org_id", raw)
package validation
