package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/validation"
)

// ParseJSON decodes a single JSON object from the request body. Unknown
// fields are rejected.
func ParseJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON: trailing data")
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes a 400 on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, "Request body must be a valid JSON object")
		return false
	}
	return true
}

// ParsePathUUID extracts a path variable and parses it as a UUID v4
func ParsePathUUID(r *http.Request, key string) (uuid.UUID, error) {
	return validation.ParseUUIDv4(key, mux.Vars(r)[key])
}

// ParsePathUUIDOrError is ParsePathUUID that writes a 400 on failure
func ParsePathUUIDOrError(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := ParsePathUUID(r, key)
	if err != nil {
		WriteValidationError(w, err)
		return uuid.Nil, false
	}
	return id, true
}
