package viseme

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePreset(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWatchCalibrationReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	writePreset(t, path, "damping: 0.85\n")

	var latest atomic.Pointer[Calibration]
	cw, err := WatchCalibration(path, func(cal *Calibration) {
		latest.Store(cal)
	}, zerolog.Nop())
	require.NoError(t, err)
	defer cw.Close()

	writePreset(t, path, "damping: 0.5\n")

	require.Eventually(t, func() bool {
		cal := latest.Load()
		return cal != nil && cal.Damping == 0.5
	}, 3*time.Second, 20*time.Millisecond, "reload never applied")
}

func TestWatchCalibrationKeepsPresetOnBadEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	writePreset(t, path, "damping: 0.85\n")

	var applies atomic.Int64
	cw, err := WatchCalibration(path, func(*Calibration) {
		applies.Add(1)
	}, zerolog.Nop())
	require.NoError(t, err)
	defer cw.Close()

	// An unknown category fails the merge; apply must not fire
	writePreset(t, path, "categories:\n  bogus: 0.5\n")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(0), applies.Load())

	// A good edit afterwards recovers
	writePreset(t, path, "damping: 0.6\n")
	require.Eventually(t, func() bool {
		return applies.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatchCalibrationIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.yaml")
	writePreset(t, path, "damping: 0.85\n")

	var applies atomic.Int64
	cw, err := WatchCalibration(path, func(*Calibration) {
		applies.Add(1)
	}, zerolog.Nop())
	require.NoError(t, err)
	defer cw.Close()

	writePreset(t, filepath.Join(dir, "other.yaml"), "damping: 0.1\n")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(0), applies.Load())
}

func TestWatchCalibrationMissingDir(t *testing.T) {
	_, err := WatchCalibration("/nonexistent/dir/calibration.yaml", func(*Calibration) {}, zerolog.Nop())
	assert.Error(t, err)
}
