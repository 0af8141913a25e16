package datastore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormLogger_LogModeReturnsNewInstanceWithLevel(t *testing.T) {
	l := NewGormLogger(200*time.Millisecond, logger.Warn)

	silenced := l.LogMode(logger.Silent)

	assert.Equal(t, logger.Warn, l.LogLevel, "original logger is unchanged")
	assert.IsType(t, &GormLogger{}, silenced)
	assert.Equal(t, logger.Silent, silenced.(*GormLogger).LogLevel)
}

func TestGormLogger_TraceDoesNotPanicOnRecordNotFound(t *testing.T) {
	_ = InitializeLogger("") // falls back to a discarding logger if the file can't be created

	l := NewGormLogger(200*time.Millisecond, logger.Warn)

	assert.NotPanics(t, func() {
		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT * FROM recording_config WHERE recording_id = ?", 0
		}, gorm.ErrRecordNotFound)
	})
}

func TestGormLogger_TraceDoesNotPanicOnGenuineError(t *testing.T) {
	_ = InitializeLogger("")

	l := NewGormLogger(200*time.Millisecond, logger.Warn)

	assert.NotPanics(t, func() {
		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "INSERT INTO engine_db_log_fft VALUES (?)", 0
		}, errors.New("connection reset"))
	})
}

func TestGormLogger_SilentLevelSuppressesTrace(t *testing.T) {
	_ = InitializeLogger("")

	l := NewGormLogger(200*time.Millisecond, logger.Silent)
	called := false

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		called = true
		return "SELECT 1", 1
	}, nil)

	assert.False(t, called, "fc should not be invoked when level is Silent")
}
