package commands

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/cuebridge/internal/printer"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/dyluth/cuebridge/pkg/statusboard"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_RequiresStatusBoard(t *testing.T) {
	res := execute(t, "--config", missingConfig(t), "watch")

	require.Error(t, res.err)
	assert.Equal(t, "No status board configured", res.err.Error())
	assert.Contains(t, res.stderr, "--redis")
}

func TestWatch_InvalidOutput(t *testing.T) {
	res := execute(t, "--config", missingConfig(t), "watch", "-o", "table")

	require.Error(t, res.err)
	assert.Equal(t, "Invalid output format: table", res.err.Error())
}

func TestWatch_StreamsChanges(t *testing.T) {
	mr := miniredis.RunT(t)
	redisURL := "redis://" + mr.Addr()

	out := &lockedBuffer{}
	prevOut, prevNoColor := printer.Stdout, color.NoColor
	printer.Stdout, color.NoColor = out, true
	defer func() { printer.Stdout, color.NoColor = prevOut, prevNoColor }()

	configPath := missingConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, configPath, &watchOptions{redisURL: redisURL, instance: "booth", output: "default"})
	}()

	board, err := statusboard.NewClientFromURL(redisURL, "booth")
	require.NoError(t, err)
	defer board.Close()

	// Publish until the subscriber has picked a change up.
	assert.Eventually(t, func() bool {
		if err := board.Publish(context.Background(), state.Snapshot{
			ServiceActive: true, OBSActive: true, RecordingActive: true, CurrentCue: "0.0.9",
		}); err != nil {
			return false
		}
		return strings.Contains(out.String(), "⏺ recording cue=0.0.9 obs=up service=up")
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, out.String(), "Watching instance booth")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}
