package sharding

import "context"

type contextKey string

const (
	// withoutShardingKey marks a context whose statements bypass routing.
	withoutShardingKey contextKey = "sharding_ignore"
)

// WithoutSharding returns a context under which ConnPool sends statements
// unchanged to the default data source.
func WithoutSharding(ctx context.Context) context.Context {
	return context.WithValue(ctx, withoutShardingKey, true)
}

func shardingDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(withoutShardingKey).(bool)
	return v
}
