package quarry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/quarry/schema"
)

// The error taxonomy of the execution core. None of these are recovered
// locally: every failure aborts the current call and surfaces to the
// caller unchanged. There is no partial result on failure.

// ArgumentError reports caller misuse: a nil id passed to a
// single-entity lookup, or a raw storage value that cannot satisfy its
// declared type. For decode failures Raw and DeclaredType carry the
// offending value.
type ArgumentError struct {
	Message      string
	Raw          any
	DeclaredType schema.FieldType
}

func (e *ArgumentError) Error() string {
	if e.DeclaredType != "" {
		return fmt.Sprintf("invalid argument: %s (value=%v, type=%s)", e.Message, e.Raw, e.DeclaredType)
	}
	return "invalid argument: " + e.Message
}

// QueryStructureError reports a query lacking the shape the requested
// operation needs, e.g. a primary-key lookup on a record type without
// exactly one primary key. Keys names the offending key set when the
// shape problem is about keys.
type QueryStructureError struct {
	Message string
	Keys    []string
}

func (e *QueryStructureError) Error() string {
	if len(e.Keys) > 0 {
		return fmt.Sprintf("query structure: %s (keys=[%s])", e.Message, strings.Join(e.Keys, ", "))
	}
	return "query structure: " + e.Message
}

// NotFoundError reports a must-variant single-result fetch that
// returned zero rows.
type NotFoundError struct {
	Source string
}

func (e *NotFoundError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("no result found for %s", e.Source)
	}
	return "no result found"
}

// MultiplicityError reports a single-result fetch that returned more
// than one row. Count is the actual row count.
type MultiplicityError struct {
	Count int
}

func (e *MultiplicityError) Error() string {
	return fmt.Sprintf("expected at most one result, got %d", e.Count)
}

// IsArgument reports whether err is an ArgumentError.
// Uses errors.As to handle wrapped errors.
func IsArgument(err error) bool {
	var e *ArgumentError
	return errors.As(err, &e)
}

// IsQueryStructure reports whether err is a QueryStructureError.
func IsQueryStructure(err error) bool {
	var e *QueryStructureError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsMultiplicity reports whether err is a MultiplicityError.
func IsMultiplicity(err error) bool {
	var e *MultiplicityError
	return errors.As(err, &e)
}
