package semsearch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/flarexio/semsearch/dataset"
)

const DefaultDebounce = 500 * time.Millisecond

// LoadEmbedded reads an embedded review CSV from disk.
func LoadEmbedded(path string) ([]dataset.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return dataset.ReadEmbedded(f)
}

// WatchDataset reindexes svc whenever the embedded CSV at path is
// written or replaced. It blocks until ctx is done. A file that fails to
// load leaves the current index in place.
func WatchDataset(ctx context.Context, svc Service, path string, debounce time.Duration) error {
	log := zap.L().With(
		zap.String("action", "watch_dataset"),
		zap.String("path", path),
	)

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory so editors that write by rename are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ev.Name != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}

			log.Debug("dataset changed", zap.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			log.Warn(err.Error())

		case <-timer.C:
			reviews, err := LoadEmbedded(path)
			if err != nil {
				log.Error(err.Error())
				continue
			}

			if err := svc.Reindex(ctx, reviews); err != nil {
				log.Error(err.Error())
				continue
			}

			log.Info("dataset reloaded", zap.Int("reviews", len(reviews)))
		}
	}
}
