package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLogger_Trace(t *testing.T) {
	begin := time.Now()
	query := func() (string, int64) {
		return "SELECT * FROM products WHERE erp_nr = ?", 1
	}

	t.Run("logs a failed query with the error", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Error)

		gormLog.Trace(context.Background(), begin, query, errors.New("connection reset"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Query failed", logs[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Error)

		gormLog.Trace(context.Background(), begin, query, gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("warns above the slow threshold", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Warn,
			WithSlowThreshold(time.Nanosecond))

		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Slow query", logs[0].Message)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("zero threshold disables slow-query logging", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Warn,
			WithSlowThreshold(0))

		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		assert.Empty(t, recorded.All())
	})

	t.Run("debug-logs successful queries at info verbosity", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info)

		gormLog.Trace(context.Background(), begin, query, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Query", logs[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Silent)

		gormLog.Trace(context.Background(), begin, query, errors.New("connection reset"))

		assert.Empty(t, recorded.All())
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	scoped := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	scopedGormLog, ok := scoped.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, scopedGormLog.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	t.Run("formats through the sugar surface", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info)

		gormLog.Info(context.Background(), "migrating %s", "products")
		gormLog.Warn(context.Background(), "retrying after %d ms", 50)

		logs := recorded.All()
		require.Len(t, logs, 2)
		assert.Equal(t, "migrating products", logs[0].Message)
		assert.Equal(t, "retrying after 50 ms", logs[1].Message)
	})

	t.Run("verbosity below the message level suppresses it", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Error)

		gormLog.Info(context.Background(), "migrating products")
		gormLog.Warn(context.Background(), "retrying")

		assert.Empty(t, recorded.All())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	var _ gormlogger.Interface = gormLog
}
