package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceDisabledIsSafe(t *testing.T) {
	var metrics *MetricsService

	assert.Nil(t, metrics.Registry())
	assert.NotPanics(t, func() {
		metrics.RecordEnrollment("ok")
		metrics.RecordCorrection()
		metrics.RecordCacheOperation(true, time.Millisecond)
		metrics.ObserveCacheWrite(time.Millisecond)
	})

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsServiceRecordsEnrollments(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordEnrollment("ok")
	metrics.RecordEnrollment("ok")
	metrics.RecordEnrollment("full")
	metrics.RecordCorrection()

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	totals := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				totals[family.GetName()] += counter.GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, totals["enrollments_total"])
	assert.Equal(t, 1.0, totals["reconciliation_corrections_total"])
}
