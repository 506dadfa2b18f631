package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-review/internal/config"
	"github.com/phrazzld/scry-review/internal/platform/clock"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "debug",
			ShutdownTimeout: 5,
		},
		Storage: config.StorageConfig{
			Driver:          driver,
			BreakerFailures: 5,
			BreakerTimeout:  30,
		},
	}
}

// newTestApp builds an application on cfg with a fixed clock at testNow.
func newTestApp(t *testing.T, cfg *config.Config) (*application, *clock.Fixed) {
	t.Helper()

	log, _ := logger.GetTestLogger(t)
	clk := clock.NewFixed(testNow)
	app, err := newApplication(context.Background(), cfg, log, clk)
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app, clk
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
