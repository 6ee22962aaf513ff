package sharding

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ConnPool implements gorm.ConnPool on top of one pool per data source. Each
// statement is routed and sent, with its table token materialized, to the
// pool of every target. Exec fans out in parallel; queries must resolve to a
// single target since results are not merged.
type ConnPool struct {
	router    *Router
	pools     map[string]gorm.ConnPool
	lastQuery atomic.String
}

// NewConnPool binds router to the connection pools of its data sources.
// Data sources missing from pools are taken from DialectorDataSource.ConnPool.
func NewConnPool(router *Router, pools map[string]gorm.ConnPool) (*ConnPool, error) {
	dsRule := router.Rule().DataSourceRule()
	p := &ConnPool{router: router, pools: make(map[string]gorm.ConnPool)}
	for _, name := range dsRule.DataSourceNames() {
		if pool, ok := pools[name]; ok && pool != nil {
			p.pools[name] = pool
			continue
		}
		ds, _ := dsRule.DataSource(name)
		if dd, ok := ds.(*DialectorDataSource); ok && dd.ConnPool != nil {
			p.pools[name] = dd.ConnPool
			continue
		}
		return nil, fmt.Errorf("%w: data source %s has no connection pool", ErrInvalidRule, name)
	}
	return p, nil
}

func (p *ConnPool) String() string {
	return "sqlshard:conn_pool"
}

// LastQuery returns the last physical statement sent by the pool.
func (p *ConnPool) LastQuery() string {
	return p.lastQuery.Load()
}

func (p *ConnPool) defaultPool() (gorm.ConnPool, error) {
	name := p.router.Rule().DataSourceRule().DefaultDataSourceName()
	if name == "" {
		return nil, fmt.Errorf("%w: no default data source configured", ErrUnknownTable)
	}
	return p.pools[name], nil
}

func (p *ConnPool) single(ctx context.Context, query string, args []interface{}) (gorm.ConnPool, string, []interface{}, error) {
	if shardingDisabled(ctx) {
		pool, err := p.defaultPool()
		return pool, query, args, err
	}
	result, err := p.router.Route(query, args...)
	if err != nil {
		return nil, "", nil, err
	}
	if len(result.Targets) != 1 {
		return nil, "", nil, unsupported("query on %s spans %d targets", result.Statement.LogicTable(), len(result.Targets))
	}
	unit := result.Targets[0]
	return p.pools[unit.DataSource], result.SQLFor(unit), result.Parameters, nil
}

func (p *ConnPool) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	pool, stQuery, _, err := p.single(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	p.lastQuery.Store(stQuery)
	return pool.PrepareContext(ctx, stQuery)
}

func (p *ConnPool) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if shardingDisabled(ctx) {
		pool, err := p.defaultPool()
		if err != nil {
			return nil, err
		}
		p.lastQuery.Store(query)
		return pool.ExecContext(ctx, query, args...)
	}

	result, err := p.router.Route(query, args...)
	if err != nil {
		return nil, err
	}
	if len(result.Targets) == 1 {
		unit := result.Targets[0]
		stQuery := result.SQLFor(unit)
		p.lastQuery.Store(stQuery)
		return p.pools[unit.DataSource].ExecContext(ctx, stQuery, result.Parameters...)
	}

	results := make([]sql.Result, len(result.Targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, unit := range result.Targets {
		i, unit := i, unit
		stQuery := result.SQLFor(unit)
		p.lastQuery.Store(stQuery)
		g.Go(func() error {
			r, err := p.pools[unit.DataSource].ExecContext(gctx, stQuery, result.Parameters...)
			if err != nil {
				return fmt.Errorf("exec on %s: %w", unit, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fanOutResult(results), nil
}

func (p *ConnPool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	pool, stQuery, params, err := p.single(ctx, query, args)
	if err != nil {
		return nil, err
	}
	p.lastQuery.Store(stQuery)
	return pool.QueryContext(ctx, stQuery, params...)
}

// QueryRowContext cannot report routing errors, so a statement that fails to
// route is logged and sent unchanged to the default data source.
func (p *ConnPool) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	pool, stQuery, params, err := p.single(ctx, query, args)
	if err != nil {
		GetLogger().Error("route %q: %v", query, err)
		stQuery, params = query, args
		if pool, err = p.defaultPool(); err != nil {
			names := p.router.Rule().DataSourceRule().DataSourceNames()
			pool = p.pools[names[0]]
		}
	}
	p.lastQuery.Store(stQuery)
	return pool.QueryRowContext(ctx, stQuery, params...)
}

// Ping checks every data source pool that supports it.
func (p *ConnPool) Ping() error {
	for name, pool := range p.pools {
		if pinger, ok := pool.(interface{ Ping() error }); ok {
			if err := pinger.Ping(); err != nil {
				return fmt.Errorf("ping %s: %w", name, err)
			}
		}
	}
	return nil
}

// fanOutResult sums the affected rows of parallel executions.
type fanOutResult []sql.Result

func (r fanOutResult) LastInsertId() (int64, error) {
	return 0, fmt.Errorf("%w: LastInsertId over %d targets", ErrUnsupportedStatement, len(r))
}

func (r fanOutResult) RowsAffected() (int64, error) {
	var total int64
	for _, res := range r {
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
