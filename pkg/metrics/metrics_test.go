package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDebit_Underflow(t *testing.T) {
	RecordDebit("credits", "job_match", "underflow", 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(meteringUnderflow.WithLabelValues("credits")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(meteringCharged.WithLabelValues("credits")), float64(2))
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "/health", 200, 10*time.Millisecond)
	RecordHTTPRequest("GET", "/health", 200, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(httpRequestTotal.WithLabelValues("GET", "/health", "200")))
}
