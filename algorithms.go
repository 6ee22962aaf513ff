package sharding

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"hash/fnv"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/go-faster/city"
	"github.com/shopspring/decimal"
	"github.com/spaolacci/murmur3"
)

// HashFunction selects the hash used by HashModAlgorithm.
type HashFunction int

const (
	HashCRC32 HashFunction = iota
	HashMurmur
	HashCity
	HashFNV
)

func (hf HashFunction) String() string {
	switch hf {
	case HashCRC32:
		return "crc32"
	case HashMurmur:
		return "murmur"
	case HashCity:
		return "city"
	case HashFNV:
		return "fnv"
	}
	return ""
}

// HashFunctionByName returns the HashFunction for a configuration name.
func HashFunctionByName(name string) (HashFunction, error) {
	switch strings.ToLower(name) {
	case "", "crc32":
		return HashCRC32, nil
	case "murmur", "murmur3":
		return HashMurmur, nil
	case "city":
		return HashCity, nil
	case "fnv", "fnv1a":
		return HashFNV, nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %s", name)
	}
}

// ModAlgorithm routes an integer value v to availableTargets[v % n].
func ModAlgorithm() ShardingAlgorithm {
	return EqualityAlgorithm(modTargets)
}

// ModRangeAlgorithm behaves like ModAlgorithm for exact values. A range
// narrower than the number of targets is enumerated; wider ranges hit every
// target.
func ModRangeAlgorithm() ShardingAlgorithm {
	return RangeAlgorithm(modTargets, func(available []string, values []ShardingValue) ([]string, error) {
		n := int64(len(available))
		var targets []string
		for _, v := range values {
			if v.Range == nil {
				exact, err := modTargets(available, []ShardingValue{v})
				if err != nil {
					return nil, err
				}
				targets = append(targets, exact...)
				continue
			}
			lower, err := toInt64(v.Range.Lower)
			if err != nil {
				return nil, err
			}
			upper, err := toInt64(v.Range.Upper)
			if err != nil {
				return nil, err
			}
			if upper < lower {
				continue
			}
			// uint64 arithmetic keeps the width exact for ranges wider than MaxInt64.
			if uint64(upper)-uint64(lower) >= uint64(n-1) {
				return available, nil
			}
			for i := lower; ; i++ {
				targets = append(targets, available[mod(i, n)])
				if i == upper {
					break
				}
			}
		}
		return targets, nil
	})
}

func modTargets(available []string, values []ShardingValue) ([]string, error) {
	n := int64(len(available))
	var targets []string
	for _, v := range values {
		for _, value := range v.Values {
			i, err := toInt64(value)
			if err != nil {
				return nil, fmt.Errorf("mod sharding on %s: %w", v.Column, err)
			}
			targets = append(targets, available[mod(i, n)])
		}
	}
	return targets, nil
}

func mod(v, n int64) int64 {
	r := v % n
	if r < 0 {
		r += n
	}
	return r
}

// HashModAlgorithm hashes each value with hf and routes it to
// availableTargets[hash % n].
func HashModAlgorithm(hf HashFunction) ShardingAlgorithm {
	return EqualityAlgorithm(func(available []string, values []ShardingValue) ([]string, error) {
		n := uint32(len(available))
		var targets []string
		for _, v := range values {
			for _, value := range v.Values {
				h, err := hashValue(value, hf)
				if err != nil {
					return nil, fmt.Errorf("hash sharding on %s: %w", v.Column, err)
				}
				targets = append(targets, available[h%n])
			}
		}
		return targets, nil
	})
}

func hashValue(value interface{}, hf HashFunction) (uint32, error) {
	var buf []byte
	switch v := value.(type) {
	case string:
		buf = []byte(v)
	case []byte:
		buf = v
	case nil:
		return 0, fmt.Errorf("cannot hash nil value")
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		buf = make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(i))
	}

	switch hf {
	case HashMurmur:
		return murmur3.Sum32(buf), nil
	case HashCity:
		return city.Hash32(buf), nil
	case HashCRC32:
		return crc32.ChecksumIEEE(buf), nil
	case HashFNV:
		h := fnv.New32a()
		h.Write(buf)
		return h.Sum32(), nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %d", hf)
	}
}

// ExpressionAlgorithm evaluates expression with the sharding column values
// bound as parameters, e.g. "user_id % 4" or "'t_order_' + (user_id % 4)".
// A numeric result indexes availableTargets (modulo their count); a string
// result must name a target or be a suffix of exactly one target.
func ExpressionAlgorithm(expression string) (ShardingAlgorithm, error) {
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return ShardingAlgorithm{}, fmt.Errorf("%w: sharding expression %q: %v", ErrInvalidRule, expression, err)
	}

	return EqualityAlgorithm(func(available []string, values []ShardingValue) ([]string, error) {
		var targets []string
		err := eachCombination(values, map[string]interface{}{}, func(params map[string]interface{}) error {
			result, err := expr.Evaluate(params)
			if err != nil {
				return fmt.Errorf("evaluate sharding expression %q: %w", expression, err)
			}
			target, err := expressionTarget(available, result)
			if err != nil {
				return err
			}
			targets = append(targets, target)
			return nil
		})
		return targets, err
	}), nil
}

// eachCombination calls fn once per combination of the values of every
// sharding column.
func eachCombination(values []ShardingValue, params map[string]interface{}, fn func(map[string]interface{}) error) error {
	if len(values) == 0 {
		return fn(params)
	}
	head := values[0]
	for _, v := range head.Values {
		params[head.Column] = expressionParam(v)
		if err := eachCombination(values[1:], params, fn); err != nil {
			return err
		}
	}
	delete(params, head.Column)
	return nil
}

func expressionParam(v interface{}) interface{} {
	switch x := v.(type) {
	case string, bool, float64:
		return x
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	}
	if i, err := toInt64(v); err == nil {
		return float64(i)
	}
	return v
}

func expressionTarget(available []string, result interface{}) (string, error) {
	switch r := result.(type) {
	case float64:
		return available[mod(int64(r), int64(len(available)))], nil
	case string:
		var match string
		for _, a := range available {
			if a == r {
				return a, nil
			}
			if strings.HasSuffix(a, r) {
				if match != "" {
					return "", fmt.Errorf("%w: suffix %s matches both %s and %s", ErrInvalidTarget, r, match, a)
				}
				match = a
			}
		}
		if match == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidTarget, r)
		}
		return match, nil
	default:
		return "", fmt.Errorf("%w: expression result %v (%T)", ErrInvalidTarget, result, result)
	}
}

func toInt64(value interface{}) (int64, error) {
	if value == nil {
		return 0, fmt.Errorf("cannot convert nil to int64")
	}

	// Handle pointer types first
	valueType := reflect.TypeOf(value)
	if valueType.Kind() == reflect.Ptr {
		if reflect.ValueOf(value).IsNil() {
			return 0, fmt.Errorf("cannot convert nil pointer to int64")
		}
		if b, ok := value.(*big.Int); ok {
			if !b.IsInt64() {
				return 0, fmt.Errorf("big.Int value %s overflows int64", b)
			}
			return b.Int64(), nil
		}
		return toInt64(reflect.ValueOf(value).Elem().Interface())
	}

	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("uint64 value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case decimal.Decimal:
		return v.IntPart(), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("error converting string to int64: %v", err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported type for conversion to int64: %T", v)
	}
}
