package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("uploaded"))
	ObserveRun("uploaded")
	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("uploaded")))

	before = testutil.ToFloat64(RunsTotal.WithLabelValues("unknown"))
	ObserveRun("")
	assert.Equal(t, before+1, testutil.ToFloat64(RunsTotal.WithLabelValues("unknown")))
}

func TestObserveAttempt(t *testing.T) {
	c := StageAttempts.WithLabelValues("download", ResultMismatch)
	before := testutil.ToFloat64(c)
	ObserveAttempt("download", ResultMismatch)
	ObserveAttempt("download", ResultMismatch)
	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestAddBytes(t *testing.T) {
	c := BytesTransferred.WithLabelValues(DirectionUpload)
	before := testutil.ToFloat64(c)
	AddBytes(DirectionUpload, 1024)
	AddBytes(DirectionUpload, 0)
	AddBytes(DirectionUpload, -5)
	assert.Equal(t, before+1024, testutil.ToFloat64(c))
}

func TestMarkSuccess(t *testing.T) {
	MarkSuccess(time.Unix(1700000000, 0))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(LastSuccess))
}

func TestHandler(t *testing.T) {
	ObserveStage("convert", 3*time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mediaferry_stage_duration_seconds")
}
