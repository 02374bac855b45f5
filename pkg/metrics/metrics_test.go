package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"walletcheckin/pkg/logger"
)

func TestRecordStep(t *testing.T) {
	r := New("test")

	r.RecordStep("login", true, 100*time.Millisecond)
	r.RecordStep("login", true, 200*time.Millisecond)
	r.RecordStep("checkIn", false, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.steps.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.steps.WithLabelValues("checkIn", OutcomeFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.steps.WithLabelValues("checkIn", OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.stepDuration))
}

func TestRecordBatchAndCheckpoint(t *testing.T) {
	r := New("test")

	r.RecordItem(true)
	r.RecordItem(false)
	r.RecordBatch(1, 1)
	r.RecordBatch(2, 0)
	r.RecordCheckpoint(3)
	r.RecordPoints("0xabc", 250)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.batches))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.lastCheckpoint))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.items.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.points))
}

func TestHandler(t *testing.T) {
	r := New("walletcheckin")
	r.RecordStep("login", true, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `walletcheckin_steps_total{outcome="success",step="login"} 1`)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	r := New("walletcheckin")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, addr, logger.NewNopLogger()) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/metrics")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "walletcheckin_batches_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
