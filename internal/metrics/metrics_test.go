package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSessionState(t *testing.T) {
	known := []string{"idle", "capturing", "completed"}

	SetSessionState("capturing", known)
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState.WithLabelValues("capturing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState.WithLabelValues("idle")))

	SetSessionState("completed", known)
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState.WithLabelValues("capturing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState.WithLabelValues("completed")))
}

func TestServer_ServesMetrics(t *testing.T) {
	FramesCapturedTotal.WithLabelValues("test0").Add(3)

	s := NewServer("127.0.0.1:0", "")
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pcapture_frames_captured_total{device="test0"} 3`)
}

func TestServer_StartBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", "/metrics")
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	second := NewServer(first.Addr(), "/metrics")
	err := second.Start(context.Background())
	assert.Error(t, err)
}

func TestServer_StopWithoutStart(t *testing.T) {
	s := NewServer(":0", "/metrics")
	assert.NoError(t, s.Stop(context.Background()))
}
