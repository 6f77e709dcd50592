// Package parsererror defines the typed errors returned by the statement
// pipeline. Recognition misses are not errors; extractors return empty
// results for those.
package parsererror

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTransactions is returned when every extractor in the cascade came back empty.
	ErrNoTransactions = errors.New("no transactions could be extracted; the statement layout may be unsupported, inspect the extracted text with --dump-text")

	// ErrOnlyZeroAmounts is returned when extraction succeeded but every row had a zero amount.
	ErrOnlyZeroAmounts = errors.New("no valid transactions found: every extracted row has a zero amount")

	// ErrAlreadyProcessing is returned when the same file is submitted while a previous run is in flight.
	ErrAlreadyProcessing = errors.New("file is already being processed")
)

// ParseError reports a field that could not be parsed.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports an input file rejected before extraction.
type ValidationError struct {
	FilePath string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.FilePath, e.Reason)
}

// CategorizationError reports a failed classification attempt.
type CategorizationError struct {
	Transaction string
	Strategy    string
	Err         error
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("categorization failed for %s using %s: %v",
		e.Transaction, e.Strategy, e.Err)
}

func (e *CategorizationError) Unwrap() error {
	return e.Err
}

// RemoteFailureKind distinguishes why a remote classification failed.
type RemoteFailureKind string

const (
	RemoteUnavailable RemoteFailureKind = "unavailable"
	RemoteRejected    RemoteFailureKind = "rejected"
)

// RemoteClassificationError wraps a failure of the remote classifier.
type RemoteClassificationError struct {
	Kind RemoteFailureKind
	Err  error
}

func (e *RemoteClassificationError) Error() string {
	return fmt.Sprintf("remote classification %s: %v", e.Kind, e.Err)
}

func (e *RemoteClassificationError) Unwrap() error {
	return e.Err
}

// InvalidFormatError reports a file that does not have the expected format.
type InvalidFormatError struct {
	FilePath             string
	ExpectedFormat       string
	ActualContentSnippet string
	Msg                  string
}

func (e *InvalidFormatError) Error() string {
	if e.ActualContentSnippet != "" {
		return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s. Content snippet: '%s'",
			e.FilePath, e.Msg, e.ExpectedFormat, e.ActualContentSnippet)
	}
	return fmt.Sprintf("invalid format in file '%s': %s. Expected: %s",
		e.FilePath, e.Msg, e.ExpectedFormat)
}

// DataExtractionError reports data that could not be pulled out of an
// otherwise readable file, such as a PDF without a text layer.
type DataExtractionError struct {
	FilePath       string
	FieldName      string
	RawDataSnippet string
	Reason         string
	Err            error
}

func (e *DataExtractionError) Error() string {
	msg := fmt.Sprintf("data extraction failed in file '%s' for field '%s': %s",
		e.FilePath, e.FieldName, e.Reason)
	if e.RawDataSnippet != "" {
		msg += fmt.Sprintf(". Raw data snippet: '%s'", e.RawDataSnippet)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *DataExtractionError) Unwrap() error {
	return e.Err
}
