package statemanager

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/events"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/metrics"
	"github.com/piccolo-io/piccolo/pkg/statemachine"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// Manager reconciles the Container → Model → Package hierarchy. It is the
// sole writer for /container, /model, /package, /scenario and /index keys.
type Manager struct {
	store  store.Store
	cfg    config.Master
	broker *events.Broker
	locks  *keyMutex
	logger zerolog.Logger
}

// NewManager creates a state manager over the given store. broker may be
// nil in tests that do not exercise reconcile dispatch.
func NewManager(st store.Store, cfg config.Master, broker *events.Broker) *Manager {
	return &Manager{
		store:  st,
		cfg:    cfg,
		broker: broker,
		locks:  newKeyMutex(),
		logger: log.WithComponent("statemanager"),
	}
}

// IngestContainerList upserts a node's reported containers and cascades
// the derived model and package states upward. Within one call, container
// puts happen before their dependent model recompute, which happens before
// the dependent package recompute.
//
// The cascade is best-effort per key: a failed step is logged and retried
// on the next report touching the same key; sibling keys converge
// independently.
func (m *Manager) IngestContainerList(ctx context.Context, nodeName string, containers []*types.ContainerInfo) error {
	timer := time.Now()
	defer func() { metrics.CascadeDuration.Observe(time.Since(timer).Seconds()) }()

	touchedModels := make(map[string]string) // model -> package ("" if unannotated)

	for _, c := range containers {
		if c.ID == "" {
			m.logger.Warn().Str("node_name", nodeName).Msg("skipping container report without id")
			continue
		}
		c.NodeName = nodeName

		if err := m.putContainer(ctx, c); err != nil {
			log.Failure(log.WithResource(m.logger, "container", c.ID), err, "container upsert failed")
			continue
		}

		model := c.Model()
		if model == "" {
			continue
		}
		if err := m.store.Put(ctx, store.ModelContainerIndexKey(model, c.ID), ""); err != nil {
			m.logger.Error().Err(err).Str("model", model).Str("container_id", c.ID).
				Msg("model index update failed")
			continue
		}

		pkg := c.Package()
		if pkg != "" {
			if err := m.store.Put(ctx, store.PackageModelIndexKey(pkg, model), ""); err != nil {
				m.logger.Error().Err(err).Str("package", pkg).Str("model", model).
					Msg("package index update failed")
				pkg = ""
			}
		}
		if pkg != "" || touchedModels[model] == "" {
			touchedModels[model] = pkg
		}
	}

	// Deterministic recompute order keeps logs and tests stable.
	models := make([]string, 0, len(touchedModels))
	for model := range touchedModels {
		models = append(models, model)
	}
	sort.Strings(models)

	// Every touched package is recomputed even when its model's value did
	// not move; a parent can be stale from an earlier failed pass.
	touchedPackages := make(map[string]bool)
	for _, model := range models {
		m.recomputeModel(ctx, model)
		if pkg := touchedModels[model]; pkg != "" {
			touchedPackages[pkg] = true
		}
	}

	pkgs := make([]string, 0, len(touchedPackages))
	for pkg := range touchedPackages {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	for _, pkg := range pkgs {
		m.recomputePackage(ctx, pkg)
	}

	return nil
}

// putContainer persists a container's raw record under the per-key lock.
func (m *Manager) putContainer(ctx context.Context, c *types.ContainerInfo) error {
	unlock := m.locks.Lock(string(types.KindContainer) + "/" + c.ID)
	defer unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return errdefs.Internal(err, "failed to encode container %s", c.ID)
	}
	if err := m.store.Put(ctx, store.ContainerStateKey(c.ID), string(data)); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("put_container").Inc()
		return err
	}
	return nil
}

// recomputeModel re-derives a model's state from its complete container
// set and persists it if changed. Returns true when the value moved.
func (m *Manager) recomputeModel(ctx context.Context, model string) bool {
	unlock := m.locks.Lock(string(types.KindModel) + "/" + model)
	defer unlock()

	containers, metadataOK := m.modelContainers(ctx, model)
	derived := statemachine.DeriveModelState(containers, metadataOK)

	key := store.ModelStateKey(model)
	current, err := m.store.Get(ctx, key)
	if err != nil && !errdefs.IsNotFound(err) {
		m.logger.Error().Err(err).Str("model", model).Msg("model state read failed")
		return false
	}
	if current == string(derived) {
		return false
	}

	if err := m.store.Put(ctx, key, string(derived)); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("put_model").Inc()
		log.Failure(log.WithResource(m.logger, "model", model), err, "model state write failed")
		return false
	}

	m.logger.Info().Str("model", model).Str("from", current).Str("to", string(derived)).
		Msg("model state changed")
	m.publish(events.EventModelChanged, model, string(derived))
	return true
}

// modelContainers reads a model's full container set through the
// membership index. metadataOK is false when the set could not be fetched
// within the metadata timeout; the caller maps that to the Dead branch.
func (m *Manager) modelContainers(ctx context.Context, model string) ([]*types.ContainerInfo, bool) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.MetadataTimeout)
	defer cancel()

	idx, err := m.store.GetPrefix(ctx, store.ModelContainersPrefix(model))
	if err != nil {
		m.logger.Error().Err(err).Str("model", model).Msg("model container index fetch failed")
		return nil, false
	}

	containers := make([]*types.ContainerInfo, 0, len(idx))
	for _, kv := range idx {
		id := store.LastSegment(kv.Key)
		value, err := m.store.Get(ctx, store.ContainerStateKey(id))
		if err != nil {
			if errdefs.IsNotFound(err) {
				// Index entry without a record yet; ignore.
				continue
			}
			m.logger.Error().Err(err).Str("container_id", id).Msg("container record fetch failed")
			return nil, false
		}
		var c types.ContainerInfo
		if err := json.Unmarshal([]byte(value), &c); err != nil {
			m.logger.Error().Err(err).Str("container_id", id).Msg("corrupt container record")
			return nil, false
		}
		containers = append(containers, &c)
	}
	return containers, true
}

// recomputePackage re-derives a package's state from its model set and
// persists it if changed. The store watch turns a write of "error" into a
// reconcile dispatch.
func (m *Manager) recomputePackage(ctx context.Context, pkg string) {
	unlock := m.locks.Lock(string(types.KindPackage) + "/" + pkg)
	defer unlock()

	idx, err := m.store.GetPrefix(ctx, store.PackageModelsPrefix(pkg))
	if err != nil {
		m.logger.Error().Err(err).Str("package", pkg).Msg("package model index fetch failed")
		return
	}

	modelStates := make([]types.ModelState, 0, len(idx))
	for _, kv := range idx {
		model := store.LastSegment(kv.Key)
		value, err := m.store.Get(ctx, store.ModelStateKey(model))
		if err != nil {
			if errdefs.IsNotFound(err) {
				// Model indexed but not yet derived.
				modelStates = append(modelStates, types.ModelStateCreated)
				continue
			}
			m.logger.Error().Err(err).Str("model", model).Msg("model state fetch failed")
			return
		}
		modelStates = append(modelStates, types.ModelState(value))
	}

	derived := statemachine.DerivePackageState(modelStates)

	key := store.PackageStateKey(pkg)
	current, err := m.store.Get(ctx, key)
	if err != nil && !errdefs.IsNotFound(err) {
		m.logger.Error().Err(err).Str("package", pkg).Msg("package state read failed")
		return
	}
	if current == string(derived) {
		return
	}

	if err := m.store.Put(ctx, key, string(derived)); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("put_package").Inc()
		log.Failure(log.WithResource(m.logger, "package", pkg), err, "package state write failed")
		return
	}

	// Package change events fan out from the store watch, not from here,
	// so every legitimate writer triggers them.
	m.logger.Info().Str("package", pkg).Str("from", current).Str("to", string(derived)).
		Msg("package state changed")
}

// UpdateResourceState is the explicit admin override for a derived state.
// Container records are owned by runtime reports and cannot be overridden.
func (m *Manager) UpdateResourceState(ctx context.Context, kind types.ResourceKind, name, state string) error {
	if name == "" {
		return errdefs.InvalidArgument("resource name is required")
	}
	if !statemachine.KnownKind(kind) {
		return errdefs.InvalidArgument("unknown resource kind %q", kind)
	}
	if kind == types.KindContainer {
		return errdefs.InvalidArgument("container state is derived from runtime reports and cannot be set")
	}
	if !statemachine.Valid(kind, state) {
		return errdefs.InvalidArgument("%q is not a legal state for kind %q", state, kind)
	}

	unlock := m.locks.Lock(string(kind) + "/" + name)
	defer unlock()

	if err := m.store.Put(ctx, store.StateKey(kind, name), state); err != nil {
		return err
	}
	m.logger.Info().Str("kind", string(kind)).Str("name", name).Str("state", state).
		Msg("resource state overridden")
	return nil
}

// QueryState returns the stored state value for a resource. For containers
// this is the raw JSON record; for other kinds the bare state string.
func (m *Manager) QueryState(ctx context.Context, kind types.ResourceKind, name string) (string, error) {
	if name == "" {
		return "", errdefs.InvalidArgument("resource name is required")
	}
	if !statemachine.KnownKind(kind) {
		return "", errdefs.InvalidArgument("unknown resource kind %q", kind)
	}
	value, err := m.store.Get(ctx, store.StateKey(kind, name))
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", errdefs.NotFound("%s %s not found", kind, name)
		}
		return "", err
	}
	return value, nil
}

func (m *Manager) publish(eventType events.EventType, resource, state string) {
	if m.broker == nil {
		return
	}
	m.broker.Publish(&events.Event{Type: eventType, Resource: resource, State: state})
}
