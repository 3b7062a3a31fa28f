package viseme

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// CalibrationWatcher hot-reloads a calibration preset file. A bad edit keeps
// the previous preset active.
type CalibrationWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	apply   func(*Calibration)
	log     zerolog.Logger
	done    chan struct{}
}

// WatchCalibration watches path and invokes apply with each successfully
// parsed preset. The file's directory is watched so editor replace-on-save
// still triggers.
func WatchCalibration(path string, apply func(*Calibration), log zerolog.Logger) (*CalibrationWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	cw := &CalibrationWatcher{
		watcher: watcher,
		path:    path,
		apply:   apply,
		log:     log,
		done:    make(chan struct{}),
	}

	go cw.watchLoop()

	return cw, nil
}

func (cw *CalibrationWatcher) watchLoop() {
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cw.reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warn().Err(err).Msg("calibration watcher error")
		}
	}
}

func (cw *CalibrationWatcher) reload() {
	cal, err := LoadCalibrationFile(cw.path)
	if err != nil {
		cw.log.Warn().Err(err).Str("file", cw.path).Msg("calibration reload failed, keeping previous preset")
		return
	}
	cw.apply(cal)
	cw.log.Info().Str("file", cw.path).Msg("calibration reloaded")
}

// Close stops the watcher
func (cw *CalibrationWatcher) Close() error {
	close(cw.done)
	return cw.watcher.Close()
}
