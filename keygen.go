package sharding

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// KeyGenerator supplies values for auto-increment columns omitted by an
// insert. Implementations must be safe for concurrent use and return unique,
// non-decreasing values per logical table.
type KeyGenerator interface {
	GenerateKey(logicTable, column string) (interface{}, error)
}

// KeyGeneratorFunc adapts a function to KeyGenerator.
type KeyGeneratorFunc func(logicTable, column string) (interface{}, error)

func (f KeyGeneratorFunc) GenerateKey(logicTable, column string) (interface{}, error) {
	return f(logicTable, column)
}

// IncrementKeyGenerator hands out 1, 2, 3, ... per logical table.
type IncrementKeyGenerator struct {
	counters sync.Map // logic table -> *atomic.Int64
}

func NewIncrementKeyGenerator() *IncrementKeyGenerator {
	return &IncrementKeyGenerator{}
}

func (g *IncrementKeyGenerator) GenerateKey(logicTable, _ string) (interface{}, error) {
	counter, ok := g.counters.Load(logicTable)
	if !ok {
		counter, _ = g.counters.LoadOrStore(logicTable, atomic.NewInt64(0))
	}
	return counter.(*atomic.Int64).Inc(), nil
}

// SnowflakeKeyGenerator generates 64-bit snowflake ids from a single node.
type SnowflakeKeyGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeKeyGenerator creates a generator for the given node id (0-1023).
func NewSnowflakeKeyGenerator(nodeID int64) (*SnowflakeKeyGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node error, %w", err)
	}
	return &SnowflakeKeyGenerator{node: node}, nil
}

func (g *SnowflakeKeyGenerator) GenerateKey(_, _ string) (interface{}, error) {
	return g.node.Generate().Int64(), nil
}

// UUIDKeyGenerator generates time-ordered (version 7) UUID strings.
type UUIDKeyGenerator struct{}

func (UUIDKeyGenerator) GenerateKey(_, _ string) (interface{}, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// NewKeyGenerator builds a generator from its configuration.
func NewKeyGenerator(cfg KeyGeneratorConfig) (KeyGenerator, error) {
	switch cfg.Type {
	case "", KeyGeneratorIncrement:
		return NewIncrementKeyGenerator(), nil
	case KeyGeneratorSnowflake:
		return NewSnowflakeKeyGenerator(cfg.Node)
	case KeyGeneratorUUID:
		return UUIDKeyGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown key generator type: %s", cfg.Type)
	}
}
