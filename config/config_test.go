package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/linesmerrill/traffic-portal-api/models"
)

func TestNew(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	os.Setenv("REQUEST_TIMEOUT", "3s")
	os.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	defer os.Unsetenv("REQUEST_TIMEOUT")
	defer os.Unsetenv("DB_MAX_OPEN_CONNS")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
	assert.Equal(t, "mongo", conf.DBDriver)
	assert.Equal(t, 3*time.Second, conf.RequestTimeout)
	assert.Equal(t, 25, conf.DBMaxOpenConns)
	assert.Equal(t, "@every 1h", conf.OverdueSweepSpec)
}

func TestNewReadsEnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "portal.env")
	assert.NoError(t, os.WriteFile(file, []byte("AMQP_EXCHANGE=portal-events\nPORT=9090\n"), 0o600))
	os.Setenv("ENV_FILE", file)
	os.Setenv("PORT", "7070")
	defer os.Unsetenv("ENV_FILE")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("AMQP_EXCHANGE")

	conf := New()

	assert.Equal(t, "portal-events", conf.AMQPExchange)
	assert.Equal(t, "7070", conf.Port)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("invalid filter", http.StatusBadRequest, rr, errors.New("year=20x5"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body models.ErrorMessageResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "invalid filter", body.Response.Message)
	assert.Equal(t, "year=20x5", body.Response.Error)
}

func TestErrorStatusHidesServerErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("failed to load reports", http.StatusInternalServerError, rr, errors.New("dial tcp 10.0.0.5:3306: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
