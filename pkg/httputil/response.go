package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/validation"
)

// Envelope is the body of every API response
type Envelope struct {
	Error   bool        `json:"error"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteEnvelope writes data wrapped in an Envelope
func WriteEnvelope(w http.ResponseWriter, status int, data interface{}, message string) error {
	return WriteJSON(w, status, Envelope{
		Error:   status >= http.StatusBadRequest,
		Data:    data,
		Message: message,
	})
}

// WriteSuccess writes a successful response (200 OK)
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteEnvelope(w, http.StatusOK, data, "")
}

// WriteCreated writes a successful creation response (201 Created)
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteEnvelope(w, http.StatusCreated, data, "")
}

// WriteErrorMessage writes an error envelope with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteEnvelope(w, status, nil, message)
}

// WriteError writes an error envelope with err's message
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteValidationError writes a 400 envelope. A *validation.ValidationError
// keeps its field-scoped message; anything else becomes a generic one.
func WriteValidationError(w http.ResponseWriter, err error) {
	if ve, ok := validation.AsValidationError(err); ok {
		WriteErrorMessage(w, http.StatusBadRequest, ve.Error())
		return
	}
	WriteBadRequest(w, "Invalid request")
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteNotFoundError writes a not found error (404)
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 without leaking err to the client
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "Internal server error")
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
