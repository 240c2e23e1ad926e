package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry(), "test")
}

func TestRecordOperation(t *testing.T) {
	m := newTestMetrics()

	m.RecordOperation("issue", "ok", 0.01)
	m.RecordOperation("issue", "ok", 0.02)
	m.RecordOperation("issue", "rejected", 0.01)
	m.RecordOperationError("issue", "MaxSupplyExceeded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("issue", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("issue", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrors.WithLabelValues("issue", "MaxSupplyExceeded")))
}

func TestUpdateLedgerState(t *testing.T) {
	m := newTestMetrics()

	m.UpdateLedgerState(LedgerState{
		TotalSupply:   8_000_000,
		MaxSupply:     100_000_000,
		Paused:        true,
		BlacklistSize: 3,
		Version:       12,
		VaultReserve:  55,
	})

	assert.Equal(t, 8_000_000.0, testutil.ToFloat64(m.TotalSupply))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Paused))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BlacklistSize))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.SnapshotVersion))

	m.UpdateLedgerState(LedgerState{})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Paused))
}

func TestRecordOracleLookup(t *testing.T) {
	m := newTestMetrics()

	m.RecordOracleLookup("hermes", 0.1, 7, nil)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.OracleQuoteAge))

	m.RecordOracleLookup("hermes", 0.1, 99, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleErrors.WithLabelValues("hermes")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.OracleQuoteAge))
}
