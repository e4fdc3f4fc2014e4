package envelope

import (
	bankerrors "exambank/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{Success: true},
	}
}

// Data sets the operation-specific payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// Warn attaches a non-fatal warning.
func (b *Builder) Warn(code, message string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: message})
	return b
}

// Error marks the response failed and records the error string. The error is
// classified first, so an unclassified cause still crosses the boundary with
// a stable code prefix.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	b.resp.Success = false
	b.resp.Error = bankerrors.Classify(err, "operation failed").Error()
	b.resp.Data = nil
	return b
}

// Build returns the completed envelope.
func (b *Builder) Build() Response {
	return *b.resp
}

// Ok is a shorthand for a successful data-carrying response.
func Ok(data interface{}) Response {
	return New().Data(data).Build()
}

// Fail is a shorthand for a failed response.
func Fail(err error) Response {
	return New().Error(err).Build()
}
