package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sqlscope-backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AllowOrigins: "*"},
		Connector: config.ConnectorConfig{
			ConnectTimeoutMs:    1000,
			StatementTimeoutMs:  1000,
			Flavors:             []string{"postgres", "sqlite"},
			DescribeConcurrency: 2,
			PreviewLimit:        10,
		},
		JWTSecret:     "test-secret",
		TokenTTLHours: 1,
	}
}

func TestNewAppHealth(t *testing.T) {
	app, err := newApp(testConfig(), nil, zap.NewNop())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewAppRequiresToken(t *testing.T) {
	app, err := newApp(testConfig(), nil, zap.NewNop())
	require.NoError(t, err)

	for _, path := range []string{"/api/project", "/api/query/list/abc"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode, path)
	}
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Connector.Flavors = []string{"oracle"}
	_, err := newApp(cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, "oracle")

	cfg = testConfig()
	cfg.Executor.StatementPolicy = "verb =="
	_, err = newApp(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}
