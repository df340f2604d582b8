// Package ingest parses and normalizes the two input formats: whole-record
// JSON documents and delimited CSV inspection-event logs.
package ingest

import "fmt"

// ParseError reports input that could not be read at all (malformed JSON,
// unreadable file). The input is discarded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse: %v", e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports input that parsed but is structurally unusable.
type ValidationError struct {
	Source string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input %s: %s", e.Source, e.Reason)
}
