package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-normalizer-mcp/internal/config"
	"github.com/ironsheep/image-normalizer-mcp/internal/convert"
	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// Converter starts a conversion. *convert.Dispatcher implements it.
type Converter interface {
	Convert(ctx context.Context, input any, opts convert.Options) (*convert.Future, error)
}

// Event reports the outcome for one input file.
type Event struct {
	Input  string
	Output string
	Err    error
}

// Watcher converts images dropped into an input folder and saves the
// results to an output folder.
type Watcher struct {
	cfg       config.WatchConfig
	converter Converter
	opts      convert.Options
	log       logrus.FieldLogger
	watcher   *fsnotify.Watcher
	events    chan Event

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewWatcher creates a new folder watcher. opts are applied to every
// conversion; they are always run asynchronously.
func NewWatcher(cfg config.WatchConfig, converter Converter, opts convert.Options, log logrus.FieldLogger) (*Watcher, error) {
	if cfg.InputDir == "" || cfg.OutputDir == "" {
		return nil, fmt.Errorf("watch.input_dir and watch.output_dir are required")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	opts.Async = true
	opts.Multiple = false
	opts.Output = convert.OutputBlob

	return &Watcher{
		cfg:       cfg,
		converter: converter,
		opts:      opts,
		log:       log.WithField("component", "watcher"),
		watcher:   fsWatcher,
		events:    make(chan Event, 100),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Start begins monitoring the input folder. Conversions use ctx.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	if err := w.watcher.Add(w.cfg.InputDir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", w.cfg.InputDir, err)
	}
	w.log.WithField("dir", w.cfg.InputDir).Info("watching folder")

	w.wg.Add(1)
	go w.processEvents(ctx)
	return nil
}

// processEvents debounces fsnotify events per file.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isImageFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("watcher error")

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(time.Duration(w.cfg.Debounce), func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.timers, path)
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		w.emit(w.handleFile(ctx, path))
	})
}

// handleFile converts one file and saves the result.
func (w *Watcher) handleFile(ctx context.Context, path string) Event {
	log := w.log.WithField("file", path)

	f, err := w.converter.Convert(ctx, path, w.opts)
	if err != nil {
		return Event{Input: path, Err: err}
	}
	res, err := f.Await(ctx)
	if err != nil {
		log.WithError(err).Warn("conversion failed")
		return Event{Input: path, Err: err}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out, err := imaging.SaveBlob(w.cfg.OutputDir, res.Blob, stem+media.Extension(res.Blob.Type))
	if err != nil {
		log.WithError(err).Warn("save failed")
		return Event{Input: path, Err: err}
	}

	log.WithFields(logrus.Fields{"output": out, "size": res.Blob.HumanSize()}).Info("converted")
	return Event{Input: path, Output: out}
}

func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.log.WithField("file", ev.Input).Warn("event channel full, dropping event")
	}
}

// Events returns the event channel. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and waits for in-flight conversions.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func isImageFile(path string) bool {
	base := filepath.Base(path)
	if base == "" || base[0] == '.' {
		return false
	}
	return strings.HasPrefix(media.TypeByExtension(filepath.Ext(base)), "image/")
}
