// Package watcher watches inbox directories with fsnotify and hands new files, debounced,
// to a Handler along with the inbox's tenant binding.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Inbox binds a directory to the organization (and optionally client and category) its files belong to.
type Inbox struct {
	Path           string
	OrganizationID string
	ClientID       string
	Category       string
}

// Handler receives file events of an inbox.
type Handler interface {
	FileReady(ctx context.Context, inbox Inbox, path string)
	FileRemoved(ctx context.Context, inbox Inbox, path string)
}

// Watcher watches inbox directories and calls a Handler on file changes.
type Watcher struct {
	inboxes     []Inbox
	extensions  []string
	recursive   bool
	handler     Handler
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	ctx         context.Context
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is handed over.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive also watches subdirectories of each inbox.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// New creates a watcher over inboxes. extensions filter which files are handled (empty = all).
// Inbox paths are made absolute; an inbox without an organization is an error.
func New(inboxes []Inbox, extensions []string, handler Handler, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		extensions:  extensions,
		handler:     handler,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, in := range inboxes {
		if in.OrganizationID == "" {
			return nil, errors.New("inbox " + in.Path + " has no organization")
		}
		abs, err := filepath.Abs(in.Path)
		if err != nil {
			return nil, err
		}
		in.Path = filepath.Clean(abs)
		w.inboxes = append(w.inboxes, in)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start starts watching. Events are processed until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.ctx = ctx
	for _, in := range w.inboxes {
		if err := w.addInboxLocked(in.Path); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	w.logger.Info("watching inboxes", zap.Int("inboxes", len(w.inboxes)), zap.Strings("extensions", w.extensions))
	go w.run(ctx, watcher)
	return nil
}

// Run starts the watcher, hands over files already present, and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	w.SyncExistingFiles()
	<-ctx.Done()
	w.Stop()
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	inbox, ok := w.inboxFor(path)
	if !ok {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if w.recursive {
				w.handleNewDirectory(inbox, path)
			}
			return
		}
		if matchExtension(path, w.extensions) {
			w.debounceReady(inbox, path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if matchExtension(path, w.extensions) {
			w.handler.FileRemoved(w.context(), inbox, path)
		}
	}
}

// handleNewDirectory watches a directory created inside an inbox and hands over its files.
func (w *Watcher) handleNewDirectory(inbox Inbox, dir string) {
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	w.syncDirectory(inbox, dir)
}

// inboxFor returns the inbox containing path. Nested inboxes resolve to the deepest one.
func (w *Watcher) inboxFor(path string) (Inbox, bool) {
	var best Inbox
	found := false
	for _, in := range w.inboxes {
		if (in.Path == path || inDir(in.Path, path)) && len(in.Path) > len(best.Path) {
			best, found = in, true
		}
	}
	return best, found
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) debounceReady(inbox Inbox, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.logger.Debug("file ready", zap.String("path", path), zap.String("org", inbox.OrganizationID))
		w.handler.FileReady(w.context(), inbox, path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) addInboxLocked(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) syncDirectory(inbox Inbox, root string) {
	ctx := w.context()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if owner, ok := w.inboxFor(path); !ok || owner.Path != inbox.Path {
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.handler.FileReady(ctx, inbox, path)
		}
		return nil
	})
}

// Inboxes returns a copy of the watched inboxes.
func (w *Watcher) Inboxes() []Inbox {
	return append([]Inbox(nil), w.inboxes...)
}

// SyncExistingFiles hands over every file already present in the inboxes.
func (w *Watcher) SyncExistingFiles() {
	for _, in := range w.inboxes {
		w.syncDirectory(in, in.Path)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
