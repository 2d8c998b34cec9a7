package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/verilang/permfold/internal/types"
)

// ReportFunc receives the outcome of re-analyzing a changed unit file.
type ReportFunc func(filename string, report *tt.Report, err error)

// StartWatching begins observing the configured directories and re-runs
// the analysis whenever a unit file changes. Reports are delivered
// through the callback.
func (e *Engine) StartWatching(onReport ReportFunc) error {
	if e.isWatching {
		return fmt.Errorf("already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	e.watcher = watcher

	for _, dir := range e.watchDirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return e.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			_ = e.watcher.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	e.isWatching = true
	go e.watchLoop(onReport)
	return nil
}

func (e *Engine) StopWatching() error {
	if !e.isWatching {
		e.logger.Warn("not watching")
		return nil
	}

	e.isWatching = false
	return e.watcher.Close()
}

func (e *Engine) watchLoop(onReport ReportFunc) {
	for e.isWatching {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			e.handleFileEvent(event, onReport)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (e *Engine) handleFileEvent(event fsnotify.Event, onReport ReportFunc) {
	if event.Op&fsnotify.Write != fsnotify.Write {
		return
	}
	if !IsUnitFile(event.Name) {
		return
	}
	// wait for a while after file change to consider multiple changes as one
	time.Sleep(100 * time.Millisecond)
	report, err := e.Run(event.Name)
	if err != nil {
		e.logger.Error("error analyzing changed unit", zap.String("file", event.Name), zap.Error(err))
	} else {
		e.logger.Info("re-analyzed unit",
			zap.String("file", event.Name),
			zap.Int("methods", len(report.Methods)),
			zap.Int("functions", len(report.Functions)),
		)
	}
	if onReport != nil {
		onReport(event.Name, report, err)
	}
}
