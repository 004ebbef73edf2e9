package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls query tracing and pool metrics for the gorm connection.
type DBConfig struct {
	TracingEnabled     bool
	MetricsEnabled     bool
	LogFullSQL         bool
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
	DBSystem           string
}

// DefaultDBConfig returns instrumentation defaults with both signals off.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
		DBSystem:           "postgresql",
	}
}

type dbStartKey struct{}

// DBInstrumentation owns the otelgorm plugin, the slow-query annotations and
// the connection pool gauges for one *gorm.DB.
type DBInstrumentation struct {
	cfg    DBConfig
	logger *zap.Logger

	queryTotal     *Counter
	slowQueryTotal *Counter
	queryDuration  *Histogram
	poolConns      *Gauge
	poolConnsMax   *Gauge

	mu       sync.RWMutex
	sqlDB    *sql.DB
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDBInstrumentation builds the instrumentation. A nil meter disables metrics.
func NewDBInstrumentation(meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}
	d := &DBInstrumentation{cfg: cfg, logger: logger, stopCh: make(chan struct{})}
	if meter == nil {
		d.cfg.MetricsEnabled = false
		return d, nil
	}

	in := NewInstruments(meter)
	d.queryTotal = in.Counter("db_query_total", "Total database queries", "{query}")
	d.slowQueryTotal = in.Counter("db_slow_query_total", "Queries slower than the configured threshold", "{query}")
	d.queryDuration = in.Histogram("db_query_duration_seconds", "Database query duration", "s", DBDurationBuckets)
	d.poolConns = in.Gauge("db_pool_connections", "Connection pool size by state", "{connection}")
	d.poolConnsMax = in.Gauge("db_pool_connections_max", "Maximum open connections", "{connection}")
	if err := in.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Register attaches otelgorm and the timing callbacks to db.
func (d *DBInstrumentation) Register(db *gorm.DB) error {
	if !d.cfg.TracingEnabled && !d.cfg.MetricsEnabled {
		d.logger.Debug("Database instrumentation disabled")
		return nil
	}

	if d.cfg.TracingEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(d.cfg.DBSystem)}
		if !d.cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	hooks := []struct {
		name   string
		verb   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		verb := h.verb
		if err := h.before("fund_db:before_"+h.name, d.markStart); err != nil {
			return err
		}
		if err := h.after("fund_db:after_"+h.name, func(tx *gorm.DB) { d.observe(tx, verb) }); err != nil {
			return err
		}
	}

	if d.cfg.MetricsEnabled {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.sqlDB = sqlDB
		d.mu.Unlock()
	}

	d.logger.Info("Database instrumentation registered",
		zap.Bool("tracing", d.cfg.TracingEnabled),
		zap.Bool("metrics", d.cfg.MetricsEnabled),
		zap.Duration("slow_query_threshold", d.cfg.SlowQueryThreshold),
	)
	return nil
}

func (d *DBInstrumentation) markStart(tx *gorm.DB) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tx.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

func (d *DBInstrumentation) observe(tx *gorm.DB, verb string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	if verb == "" {
		verb = sqlVerb(tx.Statement.SQL.String())
	}
	var elapsed time.Duration
	if start, ok := ctx.Value(dbStartKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	slow := elapsed > d.cfg.SlowQueryThreshold
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}

	if d.cfg.MetricsEnabled {
		d.queryTotal.Inc(ctx, AttrDBOperation.String(verb))
		d.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(verb))
		if slow {
			d.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		}
	}

	span := trace.SpanFromContext(ctx)
	if !d.cfg.TracingEnabled || !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("db.sql.table", table),
		attribute.Int64("db.rows_affected", tx.Statement.RowsAffected),
	)
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if slow {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", d.cfg.SlowQueryThreshold.Milliseconds()),
		))
	}
}

// StartPoolStatsCollection samples sql.DBStats until Stop or ctx is done.
func (d *DBInstrumentation) StartPoolStatsCollection(ctx context.Context) {
	d.mu.RLock()
	sqlDB := d.sqlDB
	d.mu.RUnlock()
	if !d.cfg.MetricsEnabled || sqlDB == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.cfg.PoolStatsInterval)
		defer ticker.Stop()
		for {
			d.collectPoolStats(ctx, sqlDB)
			select {
			case <-ticker.C:
			case <-d.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (d *DBInstrumentation) collectPoolStats(ctx context.Context, sqlDB *sql.DB) {
	stats := sqlDB.Stats()
	d.poolConnsMax.Record(ctx, int64(stats.MaxOpenConnections))
	d.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	d.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	d.poolConns.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool sampling. Safe to call more than once.
func (d *DBInstrumentation) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
	})
}

func sqlVerb(stmt string) string {
	stmt = strings.ToUpper(strings.TrimSpace(stmt))
	for _, v := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"} {
		if strings.HasPrefix(stmt, v) {
			if v == "WITH" {
				return "SELECT"
			}
			return v
		}
	}
	return "OTHER"
}
