package sharding

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned when the SQL text does not conform to the dialect grammar.
	ErrSyntax = errors.New("sql syntax error")

	// ErrUnsupportedStatement is returned for statement shapes that are recognized
	// but cannot be routed, such as multi-row or multi-table inserts.
	ErrUnsupportedStatement = errors.New("unsupported statement")

	// ErrUnknownTable is returned when a logical table has no rule and no
	// default data source is available for unsharded routing.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInternalConsistency indicates a defect: parser output violated an
	// invariant expected by the condition extractor.
	ErrInternalConsistency = errors.New("internal consistency violation")

	// ErrMissingShardingKey is returned when an insert carries no value for any
	// sharding column, so no single target can be chosen.
	ErrMissingShardingKey = errors.New("sharding key required, and use operator =")

	// ErrInvalidTarget is returned when a sharding algorithm answers with a
	// target that is not among the available ones.
	ErrInvalidTarget = errors.New("sharding algorithm returned an unknown target")

	// ErrInvalidRule is returned when a sharding rule fails validation.
	ErrInvalidRule = errors.New("invalid sharding rule")

	// ErrParameterIndex is returned when a parameter marker has no bound value.
	ErrParameterIndex = fmt.Errorf("%w: parameter index out of range", ErrSyntax)
)

// SyntaxError carries the position at which parsing failed.
type SyntaxError struct {
	Dialect Dialect
	Pos     int
	Near    string
	Msg     string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s: %s syntax error at position %d: %s", ErrSyntax, e.Dialect, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s syntax error at position %d near '%s': %s", ErrSyntax, e.Dialect, e.Pos, e.Near, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

func unsupported(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedStatement, fmt.Sprintf(format, args...))
}
