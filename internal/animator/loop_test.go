package animator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoopRate(t *testing.T) {
	eng := newTestEngine("Jaw_Open")
	assert.Equal(t, 60, NewLoop(eng, 0).Rate())
	assert.Equal(t, 60, NewLoop(eng, -5).Rate())
	assert.Equal(t, 120, NewLoop(eng, 120).Rate())
}

func TestLoopDrivesEngine(t *testing.T) {
	eng := newTestEngine("Jaw_Open", "Mouth_Pucker")
	loop := NewLoop(eng, 240)

	eng.ApplyViseme("aa", 1.0, false)
	loop.Start()
	defer loop.Stop()
	assert.True(t, loop.Running())

	require.Eventually(t, func() bool {
		w, ok := stateByName(eng)["Jaw_Open"]
		return ok && w > 0.8
	}, 3*time.Second, 10*time.Millisecond)
}

func TestLoopStartTwice(t *testing.T) {
	eng := newTestEngine("Jaw_Open")
	loop := NewLoop(eng, 240)

	loop.Start()
	loop.Start()
	assert.True(t, loop.Running())

	loop.Stop()
	assert.False(t, loop.Running())
}

func TestLoopStopTwice(t *testing.T) {
	eng := newTestEngine("Jaw_Open")
	loop := NewLoop(eng, 240)

	loop.Start()
	loop.Stop()
	assert.NotPanics(t, func() { loop.Stop() })
	assert.False(t, loop.Running())
}

func TestLoopRestarts(t *testing.T) {
	eng := newTestEngine("Jaw_Open")
	loop := NewLoop(eng, 240)

	loop.Start()
	loop.Stop()
	loop.Start()
	assert.True(t, loop.Running())
	loop.Stop()
}
