package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/dyluth/cuebridge/pkg/obsws"
	"github.com/dyluth/cuebridge/pkg/obsws/obswstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_CueToConvergedRecording drives a section hint through the real
// websocket client against a fake device.
func TestScenario_CueToConvergedRecording(t *testing.T) {
	device := obswstest.NewDevice()
	defer device.Close()
	device.SetRecording(true)

	st := newTestState()
	client := obsws.NewClient(device.Addr(),
		obsws.WithTimeout(time.Second),
		obsws.WithConnectivityObserver(st),
		obsws.WithLogger(quietLogger()),
	)
	handler := NewHandler(st, client, nil, quietLogger())
	reconciler := NewReconciler(st, client, ReconcilerConfig{RetryDelay: time.Millisecond}, nil, quietLogger())

	action := handler.HandleCue(context.Background(), "9.80.93|12:00:00:00")

	assert.Equal(t, cue.ActionRestart, action)
	assert.Equal(t, cue.Cue("9.80.93"), st.CurrentCue())
	assert.True(t, st.Intent())
	assert.True(t, st.Connected())
	assert.Equal(t, []string{"StopRecord", "StartRecord"}, device.RequestTypes())

	observed, converged, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, observed)
	assert.True(t, converged)
}

func TestScenario_ReconcilerRepairsMissedStart(t *testing.T) {
	device := obswstest.NewDevice()
	defer device.Close()
	device.FailStarts(3)

	st := newTestState()
	client := obsws.NewClient(device.Addr(), obsws.WithTimeout(time.Second), obsws.WithLogger(quietLogger()))
	handler := NewHandler(st, client, nil, quietLogger())
	reconciler := NewReconciler(st, client, ReconcilerConfig{RetryDelay: time.Millisecond}, nil, quietLogger())
	heartbeat := NewHeartbeat(reconciler, st, time.Minute, nil, quietLogger())

	handler.HandleCue(context.Background(), "0.0.9|x")
	require.False(t, device.Recording(), "first start was rejected")

	result := heartbeat.RunOnce(context.Background())

	assert.True(t, result.Recording)
	assert.True(t, result.Converged)
	assert.True(t, st.Snapshot().RecordingActive)
	// One cue start, then two rejected and one successful corrective start.
	assert.Equal(t, 4, device.CountRequests("StartRecord"))
}
