package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggingTestRouter() (*gin.Engine, *logtest.Hook) {
	gin.SetMode(gin.TestMode)
	logger, hook := logtest.NewNullLogger()

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.Use(Recovery(logger))

	router.GET("/recommendations/:userId", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"recommendations": []string{}})
	})
	router.GET("/recommendations/:userId/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "RECOMMENDATION_GENERATION_FAILED"}})
	})
	router.GET("/recommendations/:userId/rejected", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION_FAILED"}})
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("candidate batch corrupted")
	})

	return router, hook
}

func TestRequestLogger(t *testing.T) {
	t.Run("logs served requests with the target user", func(t *testing.T) {
		router, hook := loggingTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/recommendations/b2c3d4e5-0000-0000-0000-000000000001", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		require.Len(t, hook.Entries, 1)
		entry := hook.LastEntry()
		assert.Equal(t, logrus.InfoLevel, entry.Level)
		assert.Equal(t, "Request served", entry.Message)
		assert.Equal(t, http.StatusOK, entry.Data["status"])
		assert.Equal(t, http.MethodGet, entry.Data["method"])
		assert.Equal(t, "b2c3d4e5-0000-0000-0000-000000000001", entry.Data["user_id"])
		assert.Contains(t, entry.Data, "latency_ms")
	})

	t.Run("server errors are logged at error level", func(t *testing.T) {
		router, hook := loggingTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/recommendations/abc/broken", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		require.Len(t, hook.Entries, 1)
		entry := hook.LastEntry()
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "Request failed", entry.Message)
	})

	t.Run("client errors are logged at warn level", func(t *testing.T) {
		router, hook := loggingTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/recommendations/abc/rejected", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		require.Len(t, hook.Entries, 1)
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.Equal(t, "Request rejected", hook.LastEntry().Message)
	})

	t.Run("requests without a user param omit the field", func(t *testing.T) {
		router, hook := loggingTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		// Recovery converts the panic into the standard envelope.
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "INTERNAL_SERVER_ERROR")

		require.Len(t, hook.Entries, 2)
		panicEntry := hook.Entries[0]
		assert.Equal(t, logrus.ErrorLevel, panicEntry.Level)
		assert.Equal(t, "Panic recovered serving request", panicEntry.Message)

		requestEntry := hook.Entries[1]
		assert.NotContains(t, requestEntry.Data, "user_id")
		assert.Equal(t, http.StatusInternalServerError, requestEntry.Data["status"])
	})
}
