package telemetry_test

import (
	"context"
	"testing"

	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probe struct {
	ID   uint
	Name string
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&probe{}))
	return db
}

func TestDBInstrumentation_Disabled(t *testing.T) {
	inst, err := telemetry.NewDBInstrumentation(nil, telemetry.DefaultDBConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, inst.Register(newSQLiteDB(t)))
	inst.StartPoolStatsCollection(context.Background())
	inst.Stop()
	inst.Stop()
}

func TestDBInstrumentation_RecordsQueries(t *testing.T) {
	mp, reader := newTestMeter(t)
	cfg := telemetry.DefaultDBConfig()
	cfg.MetricsEnabled = true
	cfg.TracingEnabled = true

	inst, err := telemetry.NewDBInstrumentation(mp.Meter("db"), cfg, zap.NewNop())
	require.NoError(t, err)

	db := newSQLiteDB(t)
	require.NoError(t, inst.Register(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&probe{Name: "kas"}).Error)
	var got []probe
	require.NoError(t, db.WithContext(ctx).Find(&got).Error)
	var n int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT COUNT(*) FROM probes").Scan(&n).Error)
	assert.Equal(t, int64(1), n)

	sum := findMetric(t, reader, "db_query_total").Data.(metricdata.Sum[int64])
	byOp := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(telemetry.AttrDBOperation)
		byOp[op.AsString()] += dp.Value
	}
	assert.Equal(t, int64(1), byOp["INSERT"])
	assert.GreaterOrEqual(t, byOp["SELECT"], int64(2))

	inst.StartPoolStatsCollection(ctx)
	inst.Stop()
	gauge := findMetric(t, reader, "db_pool_connections").Data.(metricdata.Gauge[int64])
	assert.NotEmpty(t, gauge.DataPoints)
}
