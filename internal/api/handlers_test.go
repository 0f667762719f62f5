package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/cookistry/backend/config"
)

func TestHealthCheck(t *testing.T) {
	a := newTestAPI(t, withRedis(newRedis(t), config.RateLimitConfig{}))

	rr := a.get("/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, rr, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "ok", resp.Checks["redis"])
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	a := newTestAPI(t)
	sqlDB, err := a.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rr := a.get("/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"unhealthy"`)
}
