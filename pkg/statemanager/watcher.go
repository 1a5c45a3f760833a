package statemanager

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/piccolo-io/piccolo/pkg/events"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// PackageWatcher observes the /package prefix in the store and raises a
// package.error event whenever a package state lands on error. Keying the
// remediation trigger on the store rather than the in-process cascade
// means any legitimate writer fires it, and a restarted master — whose
// watch starts at the current revision — emits nothing for states that
// merely persist.
type PackageWatcher struct {
	store  store.Store
	broker *events.Broker
	logger zerolog.Logger
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewPackageWatcher creates a watcher over the package states.
func NewPackageWatcher(st store.Store, broker *events.Broker) *PackageWatcher {
	return &PackageWatcher{
		store:  st,
		broker: broker,
		logger: log.WithComponent("package-watcher"),
		doneCh: make(chan struct{}),
	}
}

// Start begins watching from the current store revision.
func (w *PackageWatcher) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	ch, err := w.store.Watch(ctx, "/package/", 0)
	if err != nil {
		cancel()
		return err
	}

	go func() {
		defer close(w.doneCh)
		for ev := range ch {
			if ev.Type != store.EventPut {
				continue
			}
			pkg, ok := packageOf(ev.Key)
			if !ok {
				continue
			}

			w.broker.Publish(&events.Event{
				Type:     events.EventPackageChanged,
				Resource: pkg,
				State:    ev.Value,
			})
			if ev.Value == string(types.PackageStateError) {
				w.logger.Warn().Str("package", pkg).Msg("package entered error state")
				w.broker.Publish(&events.Event{
					Type:     events.EventPackageError,
					Resource: pkg,
					State:    ev.Value,
				})
			}
		}
	}()

	return nil
}

// Stop ends the watch.
func (w *PackageWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.doneCh
	}
}

// packageOf extracts the package name from a /package/{name}/state key.
func packageOf(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "/package/")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "/state")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
