package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/search", "200"))

	RecordAPIRequest("GET", "/api/v1/search", 200, 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/search", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordDegraded(t *testing.T) {
	before := testutil.ToFloat64(DegradedBlocks.WithLabelValues("popularBooks"))
	RecordDegraded("popularBooks")
	assert.Equal(t, before+1, testutil.ToFloat64(DegradedBlocks.WithLabelValues("popularBooks")))
}

func TestRegisterCatalogStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	err := RegisterCatalogStats(reg, func(ctx context.Context) (int64, int64, error) {
		return 42, 7, nil
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 42.0, values["library_books"])
	assert.Equal(t, 7.0, values["library_active_loans"])
}

func TestRegisterCatalogStatsReportsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	err := RegisterCatalogStats(reg, func(ctx context.Context) (int64, int64, error) {
		return 0, 0, errors.New("db down")
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.Equal(t, -1.0, f.GetMetric()[0].GetGauge().GetValue())
	}
}
