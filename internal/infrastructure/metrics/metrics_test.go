package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CuentaComandosYMonedas(t *testing.T) {
	m := New()

	m.ObserveCommand("create_user", "ok", 10*time.Millisecond)
	m.ObserveCommand("create_user", "error", 5*time.Millisecond)
	m.CommandFailed("create_user", "INSUFFICIENT_FUNDS")
	m.CoinsTransferred("ADMIN_CREATION", 20)
	m.CoinsTransferred("ADMIN_CREATION", 20)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("create_user", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("create_user", "INSUFFICIENT_FUNDS")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.transferred.WithLabelValues("ADMIN_CREATION")))
}
