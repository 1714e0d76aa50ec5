// Package repository holds the error taxonomy shared by the recipe stores.
package repository

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a recipe, review or membership is absent.
	ErrNotFound = errors.New("not found")

	// ErrAggregateUnavailable is returned when an aggregate read yields no value,
	// e.g. an average over zero reviews.
	ErrAggregateUnavailable = errors.New("aggregate unavailable")

	// ErrAlreadyExists is returned when a keyed record is inserted twice.
	ErrAlreadyExists = errors.New("already exists")

	// ErrForbidden is returned when a user mutates a recipe they do not own.
	ErrForbidden = errors.New("forbidden")
)

// QueryError reports that the backing store was unreachable or rejected a
// composed query.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Wrap returns err as a *QueryError unless it is nil or one of the sentinel
// errors above, which callers match with errors.Is.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAggregateUnavailable) || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}

// ParseID converts a hex recipe identity. A malformed id cannot name a stored
// recipe, so it is reported as ErrNotFound.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("recipe %q: %w", id, ErrNotFound)
	}
	return oid, nil
}
