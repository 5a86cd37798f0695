package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAndExports(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	m.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	m.TokensSweptTotal.Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TokensSweptTotal))

	srv := httptest.NewServer(Handler(registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "auth_attempts_total")
	assert.Contains(t, string(body), "auth_refresh_tokens_swept_total 3")
}

func TestNop_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = Nop()
		_ = Nop()
	})
}
