package projection

import (
	"errors"
	"fmt"

	"github.com/systemshift/crmgraph/internal/server/graph"
)

var (
	// ErrValidation matches every ValidationError
	ErrValidation = errors.New("invalid change record")
	// ErrUnknownEntityType matches every UnknownEntityTypeError
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrMissingKey matches every MissingKeyError
	ErrMissingKey = errors.New("missing key")
)

// ValidationError reports a malformed envelope or record
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnknownEntityTypeError reports an object type with no registry entry
type UnknownEntityTypeError struct {
	Type string
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("unhandled object type: %s", e.Type)
}

func (e *UnknownEntityTypeError) Is(target error) bool { return target == ErrUnknownEntityType }

// MissingKeyError reports a record without its identifying field
type MissingKeyError struct {
	Type  string
	Field string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s record is missing key field %s", e.Type, e.Field)
}

func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingKey }

// Outcome names the class of a projection result for logs and metrics
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnknownEntityType):
		return "unknown_type"
	case errors.Is(err, ErrMissingKey):
		return "missing_key"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, graph.ErrDanglingReference):
		return "dangling_reference"
	case errors.Is(err, graph.ErrStore):
		return "store_error"
	default:
		return "error"
	}
}
