package sharding

import (
	"fmt"
	"sort"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DataSource is the metadata capability the sharding model needs from a
// physical data source. Connection handling lives outside this package.
type DataSource interface {
	DatabaseProductName() (string, error)
}

// DialectorDataSource adapts a gorm dialector, and optionally the connection
// pool opened from it, to a DataSource.
type DialectorDataSource struct {
	Dialector gorm.Dialector
	ConnPool  gorm.ConnPool
}

// DatabaseProductName returns the gorm dialector name ("mysql", "postgres", ...).
func (d *DialectorDataSource) DatabaseProductName() (string, error) {
	if d.Dialector == nil {
		return "", fmt.Errorf("data source has no dialector")
	}
	return d.Dialector.Name(), nil
}

// Close closes the connection pool when it was opened by OpenDataSource.
func (d *DialectorDataSource) Close() error {
	if closer, ok := d.ConnPool.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// OpenDataSource opens a gorm connection pool for dsn using the driver that
// matches dialect. The pool is not pinged; the first statement establishes
// the connection.
func OpenDataSource(dialect Dialect, dsn string) (*DialectorDataSource, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectMySQL:
		dialector = mysql.New(mysql.Config{
			DSN:                       dsn,
			SkipInitializeWithVersion: true,
		})
	case DialectPostgreSQL:
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("no driver available for dialect %s", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		return nil, fmt.Errorf("open %s data source: %w", dialect, err)
	}
	return &DialectorDataSource{Dialector: dialector, ConnPool: db.Config.ConnPool}, nil
}

// DataSourceRule maps data source names to physical data sources. It is
// immutable after construction.
type DataSourceRule struct {
	dataSources map[string]DataSource
	names       []string
	defaultName string
}

// NewDataSourceRule builds a DataSourceRule. defaultName may be empty when
// only one data source is configured, in which case that one is the default.
func NewDataSourceRule(dataSources map[string]DataSource, defaultName string) (*DataSourceRule, error) {
	if len(dataSources) == 0 {
		return nil, fmt.Errorf("%w: at least one data source is required", ErrInvalidRule)
	}

	rule := &DataSourceRule{
		dataSources: make(map[string]DataSource, len(dataSources)),
		names:       make([]string, 0, len(dataSources)),
	}
	for name, ds := range dataSources {
		if name == "" {
			return nil, fmt.Errorf("%w: data source name must not be empty", ErrInvalidRule)
		}
		if ds == nil {
			return nil, fmt.Errorf("%w: data source %s is nil", ErrInvalidRule, name)
		}
		rule.dataSources[name] = ds
		rule.names = append(rule.names, name)
	}
	sort.Strings(rule.names)

	switch {
	case defaultName != "":
		if _, ok := rule.dataSources[defaultName]; !ok {
			return nil, fmt.Errorf("%w: default data source %s is not configured", ErrInvalidRule, defaultName)
		}
		rule.defaultName = defaultName
	case len(rule.names) == 1:
		rule.defaultName = rule.names[0]
	}
	return rule, nil
}

// DataSource returns the data source registered under name.
func (r *DataSourceRule) DataSource(name string) (DataSource, bool) {
	ds, ok := r.dataSources[name]
	return ds, ok
}

// DataSourceNames returns all data source names in sorted order.
func (r *DataSourceRule) DataSourceNames() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// DefaultDataSourceName returns the default data source, or "" when the rule
// has several data sources and none was designated.
func (r *DataSourceRule) DefaultDataSourceName() string {
	return r.defaultName
}

// DatabaseType derives the dialect from the product names of all data
// sources. Mixing products is rejected.
func (r *DataSourceRule) DatabaseType() (Dialect, error) {
	var (
		result Dialect
		first  = true
	)
	for _, name := range r.names {
		product, err := r.dataSources[name].DatabaseProductName()
		if err != nil {
			return DialectGeneric, fmt.Errorf("data source %s: %w", name, err)
		}
		dialect, err := dialectFromProductName(product)
		if err != nil {
			return DialectGeneric, fmt.Errorf("data source %s: %w", name, err)
		}
		if first {
			result, first = dialect, false
			continue
		}
		if dialect != result {
			return DialectGeneric, fmt.Errorf("%w: data sources mix %s and %s", ErrInvalidRule, result, dialect)
		}
	}
	return result, nil
}
