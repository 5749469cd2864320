// Package publish keeps built Data Docs in sync with the validation
// artifacts they are rendered from. A Publisher rebuilds every site on an
// interval, and can additionally watch local artifact stores and rebuild
// shortly after files change.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/go-data-docs/site"
	"github.com/sardine-ai/go-data-docs/store"
)

const (
	minRefreshInterval = 5 * time.Second
	watchDebounce      = 500 * time.Millisecond
)

// ErrNothingToWatch is returned by Watch when no artifact store is backed
// by a local directory.
var ErrNothingToWatch = errors.New("no local artifact store to watch")

// Publisher rebuilds sites periodically. Failed builds are logged and
// reported through the build hook; pages written by earlier builds stay in
// place, so a broken artifact never takes a site offline.
type Publisher struct {
	Builder         *site.Builder
	RefreshInterval time.Duration

	onBuild func(name string, err error)
	cancel  context.CancelFunc
	kick    chan struct{}

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewPublisher builds every site once, then starts a background goroutine
// that keeps rebuilding them on the given interval until Close is called.
// onBuild, when non-nil, receives the outcome of every site build, the
// initial one included.
func NewPublisher(ctx context.Context, builder *site.Builder, refreshInterval time.Duration, onBuild func(name string, err error)) *Publisher {
	if refreshInterval < minRefreshInterval {
		logrus.Warn("refresh interval too low, setting it to 5 seconds")
		refreshInterval = minRefreshInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	publisher := &Publisher{
		Builder:         builder,
		RefreshInterval: refreshInterval,
		onBuild:         onBuild,
		cancel:          cancel,
		kick:            make(chan struct{}, 1),
	}

	publisher.rebuild(ctx)
	go refresh(ctx, publisher)
	return publisher
}

// refresh reruns the site builds on every tick, and immediately when the
// watcher schedules one, until the context is canceled.
func refresh(ctx context.Context, publisher *Publisher) {
	ticker := time.NewTicker(publisher.RefreshInterval)
	for {
		select {
		case <-ticker.C:
			publisher.rebuild(ctx)
		case <-publisher.kick:
			publisher.rebuild(ctx)
		case <-ctx.Done():
			ticker.Stop()
			return
		}
	}
}

// Trigger schedules an immediate rebuild. Multiple triggers before the
// rebuild starts collapse into one.
func (p *Publisher) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Close stops the rebuild loop and the watcher. It is safe to call more
// than once.
func (p *Publisher) Close() {
	p.cancel()
	p.mu.Lock()
	watcher := p.watcher
	p.watcher = nil
	p.mu.Unlock()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logrus.WithError(err).Error("error closing watcher")
		}
	}
}

func (p *Publisher) rebuild(ctx context.Context) {
	p.refreshStores(ctx)
	for _, st := range p.Builder.Sites {
		_, err := p.Builder.BuildSite(ctx, st.Name)
		if err != nil {
			logrus.WithError(err).WithField("site", st.Name).Error("error rebuilding site")
		}
		if p.onBuild != nil {
			p.onBuild(st.Name, err)
		}
	}
}

// refreshStores re-synchronizes every store that caches remote state, e.g.
// git clones, before the artifacts are read.
func (p *Publisher) refreshStores(ctx context.Context) {
	backends := []store.Backend{p.Builder.Expectations, p.Builder.Validations}
	for _, st := range p.Builder.Sites {
		backends = append(backends, st.Store)
	}
	for _, backend := range backends {
		refresher, ok := backend.(store.Refresher)
		if !ok {
			continue
		}
		if err := refresher.Refresh(ctx); err != nil {
			logrus.WithError(err).WithField("store", backend.GetName()).Error("error refreshing store")
		}
	}
}

// Watch starts a filesystem watcher on the local artifact stores and
// schedules a rebuild shortly after suites or validations change on disk.
// Site output stores are deliberately not watched: builds write there, and
// watching them would retrigger forever.
func (p *Publisher) Watch() error {
	dirs := p.watchableDirs()
	if len(dirs) == 0 {
		return ErrNothingToWatch
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := addRecursive(watcher, dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	p.mu.Lock()
	if p.watcher != nil {
		p.mu.Unlock()
		watcher.Close()
		return errors.New("watcher already running")
	}
	p.watcher = watcher
	p.mu.Unlock()

	logrus.WithField("dirs", dirs).Info("watching artifact stores")
	go p.watch(watcher)
	return nil
}

func (p *Publisher) watchableDirs() []string {
	var dirs []string
	for _, backend := range []store.Backend{p.Builder.Expectations, p.Builder.Validations} {
		if fsb, ok := backend.(*store.FilesystemBackend); ok {
			dirs = append(dirs, fsb.BaseDir)
		}
	}
	return dirs
}

// watch collapses bursts of filesystem events into a single rebuild per
// debounce window. Newly created directories are added to the watch, since
// fsnotify does not recurse on its own.
func (p *Publisher) watch(watcher *fsnotify.Watcher) {
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						logrus.WithError(err).Debug("error watching new directory")
					}
				}
			}
			timer.Reset(watchDebounce)
		case <-timer.C:
			logrus.Debug("artifact change detected, scheduling rebuild")
			p.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Error("error watching artifact stores")
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
