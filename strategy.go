package sharding

import (
	"fmt"
	"strings"
)

// ValueRange is an inclusive range of sharding column values, produced by
// BETWEEN predicates.
type ValueRange struct {
	Lower interface{}
	Upper interface{}
}

// ShardingValue is the routing input for one sharding column: either a list
// of exact values (EQUAL, IN) or a range.
type ShardingValue struct {
	LogicTable string
	Column     string
	Values     []interface{}
	Range      *ValueRange
}

func (v ShardingValue) String() string {
	if v.Range != nil {
		return fmt.Sprintf("%s.%s:[%v..%v]", v.LogicTable, v.Column, v.Range.Lower, v.Range.Upper)
	}
	return fmt.Sprintf("%s.%s:%v", v.LogicTable, v.Column, v.Values)
}

// ShardingFunc picks targets out of availableTargets for the given values.
// availableTargets are physical table names for table strategies and data
// source names for database strategies.
type ShardingFunc func(availableTargets []string, values []ShardingValue) ([]string, error)

type algorithmKind int

const (
	algorithmNone algorithmKind = iota
	algorithmEquality
	algorithmRange
)

// ShardingAlgorithm is a closed set of algorithm shapes: None (single fixed
// target), Equality (exact values only) and Range (exact values and ranges).
type ShardingAlgorithm struct {
	kind  algorithmKind
	exact ShardingFunc
	rng   ShardingFunc
}

// NoneAlgorithm always routes to the first available target.
func NoneAlgorithm() ShardingAlgorithm {
	return ShardingAlgorithm{kind: algorithmNone}
}

// EqualityAlgorithm routes exact values with fn. Range conditions fall back
// to every available target.
func EqualityAlgorithm(fn ShardingFunc) ShardingAlgorithm {
	return ShardingAlgorithm{kind: algorithmEquality, exact: fn}
}

// RangeAlgorithm routes exact values with exact and ranges with rng.
func RangeAlgorithm(exact, rng ShardingFunc) ShardingAlgorithm {
	return ShardingAlgorithm{kind: algorithmRange, exact: exact, rng: rng}
}

// IsNone reports whether the algorithm is the None variant.
func (a ShardingAlgorithm) IsNone() bool {
	return a.kind == algorithmNone
}

func (a ShardingAlgorithm) String() string {
	switch a.kind {
	case algorithmEquality:
		return "equality"
	case algorithmRange:
		return "range"
	default:
		return "none"
	}
}

// computeTargets dispatches on the algorithm variant. Without any sharding
// value every available target is returned.
func (a ShardingAlgorithm) computeTargets(available []string, values []ShardingValue) ([]string, error) {
	if len(available) == 0 {
		return nil, fmt.Errorf("%w: no available targets", ErrInvalidTarget)
	}
	if a.kind == algorithmNone {
		return available[:1], nil
	}
	if len(values) == 0 {
		return available, nil
	}

	hasRange := false
	for _, v := range values {
		if v.Range != nil {
			hasRange = true
			break
		}
	}

	var (
		targets []string
		err     error
	)
	switch {
	case hasRange && a.kind == algorithmEquality:
		return available, nil
	case hasRange:
		targets, err = a.rng(available, values)
	default:
		targets, err = a.exact(available, values)
	}
	if err != nil {
		return nil, err
	}
	return filterTargets(available, targets)
}

// filterTargets checks targets against available and returns them in the
// order of available, without duplicates.
func filterTargets(available, targets []string) ([]string, error) {
	wanted := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		found := false
		for _, a := range available {
			if a == t {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s not in [%s]", ErrInvalidTarget, t, strings.Join(available, ", "))
		}
		wanted[t] = struct{}{}
	}

	result := make([]string, 0, len(wanted))
	for _, a := range available {
		if _, ok := wanted[a]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

// ShardingStrategy binds an algorithm to the columns it reads.
type ShardingStrategy struct {
	Columns   []string
	Algorithm ShardingAlgorithm
}

// NewShardingStrategy builds a strategy sharding on columns with algorithm.
func NewShardingStrategy(columns []string, algorithm ShardingAlgorithm) *ShardingStrategy {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &ShardingStrategy{Columns: cols, Algorithm: algorithm}
}

// NoneShardingStrategy is the strategy for tables that are not partitioned.
func NoneShardingStrategy() *ShardingStrategy {
	return &ShardingStrategy{Algorithm: NoneAlgorithm()}
}

func (s *ShardingStrategy) validate() error {
	if s.Algorithm.IsNone() {
		return nil
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: %s strategy requires sharding columns", ErrInvalidRule, s.Algorithm)
	}
	if s.Algorithm.kind == algorithmEquality && s.Algorithm.exact == nil {
		return fmt.Errorf("%w: equality strategy requires a sharding function", ErrInvalidRule)
	}
	if s.Algorithm.kind == algorithmRange && (s.Algorithm.exact == nil || s.Algorithm.rng == nil) {
		return fmt.Errorf("%w: range strategy requires exact and range sharding functions", ErrInvalidRule)
	}
	return nil
}

// hasColumn reports whether column is one of the strategy's sharding columns.
func (s *ShardingStrategy) hasColumn(column string) bool {
	for _, c := range s.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// shardingValues selects the conditions of cc that apply to the strategy's
// columns, in strategy column order.
func (s *ShardingStrategy) shardingValues(logicTable string, cc *ConditionContext) []ShardingValue {
	if cc == nil {
		return nil
	}
	var values []ShardingValue
	for _, column := range s.Columns {
		condition, ok := cc.Find(logicTable, column)
		if !ok {
			continue
		}
		values = append(values, condition.shardingValue())
	}
	return values
}
