package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrStore matches every StoreError
	ErrStore = errors.New("graph store failure")
	// ErrDanglingReference matches every DanglingReferenceError
	ErrDanglingReference = errors.New("dangling reference")
	// ErrNodeNotFound is returned by GetNode
	ErrNodeNotFound = errors.New("node not found")
)

// StoreError wraps a transport, availability or constraint failure in the
// storage backend. Callers may retry the whole projection.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("graph store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// DanglingReferenceError reports an edge merge whose endpoint does not exist
// under the strict edge policy.
type DanglingReferenceError struct {
	Edge        EdgeRef
	MissingFrom bool
	MissingTo   bool
}

func (e *DanglingReferenceError) Error() string {
	var missing string
	switch {
	case e.MissingFrom && e.MissingTo:
		missing = fmt.Sprintf("%s %s and %s %s", e.Edge.FromLabel, e.Edge.FromKey, e.Edge.ToLabel, e.Edge.ToKey)
	case e.MissingFrom:
		missing = fmt.Sprintf("%s %s", e.Edge.FromLabel, e.Edge.FromKey)
	default:
		missing = fmt.Sprintf("%s %s", e.Edge.ToLabel, e.Edge.ToKey)
	}
	return fmt.Sprintf("dangling reference: %s does not exist for %s", missing, e.Edge.RelType)
}

func (e *DanglingReferenceError) Is(target error) bool { return target == ErrDanglingReference }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var dangling *DanglingReferenceError
	if errors.As(err, &dangling) || errors.Is(err, ErrNodeNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
