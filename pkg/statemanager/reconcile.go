package statemanager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/events"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/metrics"
)

// Reconciler dispatches a remediation request for a package. Implemented
// by the action controller gRPC client; the action controller is
// idempotent, so at-least-once delivery with duplicates is acceptable.
type Reconciler interface {
	Reconcile(ctx context.Context, packageName string) error
}

// Dispatcher consumes package.error events and delivers reconcile
// requests to the action controller, retrying each with exponential
// backoff up to the configured ceiling. Dispatch failures never propagate
// into the cascade; the package stays in error until its models recover.
type Dispatcher struct {
	reconciler Reconciler
	broker     *events.Broker
	cfg        config.Master
	logger     zerolog.Logger
	cancel     context.CancelFunc
	doneCh     chan struct{}
}

// NewDispatcher creates a reconcile dispatcher.
func NewDispatcher(reconciler Reconciler, broker *events.Broker, cfg config.Master) *Dispatcher {
	return &Dispatcher{
		reconciler: reconciler,
		broker:     broker,
		cfg:        cfg,
		logger:     log.WithComponent("reconcile"),
		doneCh:     make(chan struct{}),
	}
}

// Start begins consuming package.error events.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	sub := d.broker.Subscribe()

	go func() {
		defer close(d.doneCh)
		for {
			select {
			case event, ok := <-sub:
				if !ok {
					return
				}
				if event.Type != events.EventPackageError {
					continue
				}
				// Dispatch on its own task so a slow action controller
				// does not delay further events.
				go d.dispatch(ctx, event.Resource)
			case <-ctx.Done():
				d.broker.Unsubscribe(sub)
				return
			}
		}
	}()
}

// Stop cancels in-flight dispatch retries.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
		<-d.doneCh
	}
}

// dispatch delivers one reconcile request with exponential backoff. The
// ceiling caps the delay between attempts, not the attempt count: the
// loop runs until the request lands or the dispatcher shuts down, so a
// package stuck in error through a long action-controller outage is
// still reconciled when the controller returns.
func (d *Dispatcher) dispatch(ctx context.Context, packageName string) {
	backoff := time.Second

	for {
		callCtx, cancel := context.WithTimeout(ctx, config.DefaultRequestTimeout)
		err := d.reconciler.Reconcile(callCtx, packageName)
		cancel()

		if err == nil {
			d.logger.Info().Str("package", packageName).Msg("reconcile dispatched")
			metrics.ReconcileDispatchesTotal.WithLabelValues("ok").Inc()
			return
		}

		metrics.ReconcileDispatchesTotal.WithLabelValues("retry").Inc()
		d.logger.Warn().Err(err).Str("package", packageName).Dur("backoff", backoff).
			Msg("reconcile dispatch failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			metrics.ReconcileDispatchesTotal.WithLabelValues("cancelled").Inc()
			return
		}

		backoff *= 2
		if backoff > d.cfg.ReconcileCeiling {
			backoff = d.cfg.ReconcileCeiling
		}
	}
}
