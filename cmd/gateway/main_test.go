package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/application"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegistry_DefaultsAndFile(t *testing.T) {
	reg, err := buildRegistry(config{tiered: true})
	require.NoError(t, err)
	assert.Equal(t, 10, reg.Resolve(domain.ClassDescription, domain.TierNone).MaxRequests)

	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
classes:
  description:
    max_requests: 3
    window: 30s
    block: 1m
`), 0o600))

	reg, err = buildRegistry(config{policyFile: path})
	require.NoError(t, err)
	p := reg.Resolve(domain.ClassDescription, domain.TierPro)
	assert.Equal(t, 3, p.MaxRequests)
	assert.Equal(t, 30*time.Second, p.Window)

	_, err = buildRegistry(config{policyFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestBuildRegistry_TierHeaderIgnoredByDefault(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "http://localhost:9000")
	cfg, err := readConfig()
	require.NoError(t, err)

	reg, err := buildRegistry(cfg)
	require.NoError(t, err)
	assert.False(t, reg.Tiered())
	assert.Equal(t, 10, reg.Resolve(domain.ClassDescription, domain.TierEnterprise).MaxRequests)

	t.Setenv("TIERED_LIMITS_ENABLED", "true")
	cfg, err = readConfig()
	require.NoError(t, err)
	reg, err = buildRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, reg.Resolve(domain.ClassDescription, domain.TierEnterprise).MaxRequests)
}

func TestBuildStats_Disabled(t *testing.T) {
	stats, err := buildStats(config{})
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestAdminRouter(t *testing.T) {
	store := infra.NewLocalStore()
	r := adminRouter(config{metricsEnabled: true}, application.AdminService{Store: store}, slog.New(slog.DiscardHandler))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/status?identity=ip:1.2.3.4&class=auth", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":5`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
