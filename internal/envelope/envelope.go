// Package envelope provides the standardized response wrapper for every
// operation crossing the presentation boundary. Failures are always carried
// in the envelope's error string; nothing below the boundary throws across it.
package envelope

// Warning represents a non-fatal issue attached to an otherwise successful
// response (e.g. rows skipped during a batch import).
type Warning struct {
	Code    string `json:"code,omitempty"` // machine-readable code
	Message string `json:"message"`        // human-readable message
}

// Response is the uniform envelope for all exam bank operations.
type Response struct {
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []Warning   `json:"warnings,omitempty"`
}
