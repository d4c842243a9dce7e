package mbox

import "errors"

var (
	// ErrFileAccess is returned when the archive cannot be opened or read.
	ErrFileAccess = errors.New("mbox file access failed")

	// ErrStructuralParse is returned when the token stream is malformed beyond recovery.
	ErrStructuralParse = errors.New("mbox structural parse failed")

	// ErrRecordValidation is returned when a message draft lacks a required field.
	ErrRecordValidation = errors.New("mbox record validation failed")
)
