package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func loggedRequest(t *testing.T, status int) observer.LoggedEntry {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	handler := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/queues/status", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestLogger_SuccessLogsAtInfo(t *testing.T) {
	entry := loggedRequest(t, http.StatusOK)

	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/queues/status", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestLogger_ClientErrorLogsAtWarn(t *testing.T) {
	entry := loggedRequest(t, http.StatusBadRequest)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
}

func TestLogger_ServerErrorLogsAtError(t *testing.T) {
	entry := loggedRequest(t, http.StatusInternalServerError)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
}
