package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/piccolo-io/piccolo/pkg/api"
	"github.com/piccolo-io/piccolo/pkg/client"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/events"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/metrics"
	"github.com/piccolo-io/piccolo/pkg/registry"
	"github.com/piccolo-io/piccolo/pkg/rest"
	"github.com/piccolo-io/piccolo/pkg/statemanager"
	"github.com/piccolo-io/piccolo/pkg/store"
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the Piccolo master",
	Long: `Run the Piccolo master: node registry, state manager, liveness
scanner, gRPC API for node agents and the admin REST API. Cluster state
is persisted in etcd; --dev runs against an in-memory store instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("etcd-endpoints"); v != "" {
			cfg.Master.EtcdEndpoints = []string{v}
		}
		if v, _ := cmd.Flags().GetString("grpc-addr"); v != "" {
			cfg.Master.GRPCAddr = v
		}
		if v, _ := cmd.Flags().GetString("rest-addr"); v != "" {
			cfg.Master.RESTAddr = v
		}
		dev, _ := cmd.Flags().GetBool("dev")

		logger := log.WithComponent("master")

		// Store: etcd in production, in-memory in dev mode.
		var st store.Store
		if dev {
			st = store.NewMemStore()
			logger.Warn().Msg("running with in-memory store; state will not survive restart")
		} else {
			st, err = store.NewEtcdStore(cfg.Master.EtcdEndpoints)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
		}
		defer st.Close()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		states := statemanager.NewManager(st, cfg.Master, broker)
		reg := registry.NewRegistry(st, cfg.Master, broker, states)

		watcher := statemanager.NewPackageWatcher(st, broker)
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start package watcher: %w", err)
		}
		defer watcher.Stop()

		scanner := registry.NewScanner(reg)
		scanner.Start()
		defer scanner.Stop()

		// Reconcile dispatch to the external action controller.
		if cfg.Master.ActionControllerAddr != "" {
			ac, err := client.NewActionController(cfg.Master.ActionControllerAddr)
			if err != nil {
				return fmt.Errorf("failed to create action controller client: %w", err)
			}
			defer ac.Close()
			dispatcher := statemanager.NewDispatcher(ac, broker, cfg.Master)
			dispatcher.Start()
			defer dispatcher.Stop()
		} else {
			logger.Warn().Msg("no action controller configured; reconcile dispatch disabled")
		}

		collector := metrics.NewCollector(reg, st)
		collector.Start()
		defer collector.Stop()

		// Per-node channels for master-initiated agent calls, surfaced
		// through the REST artifact and agent-health routes.
		agents := api.NewDispatcher(reg)
		defer agents.Close()

		grpcServer := api.NewServer(reg, states, cfg.Master)
		restServer := rest.NewServer(reg, states, agents, cfg.Master)

		errCh := make(chan error, 2)
		go func() {
			if err := grpcServer.Start(cfg.Master.GRPCAddr); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
		go func() {
			if err := restServer.Start(); err != nil {
				errCh <- fmt.Errorf("REST server: %w", err)
			}
		}()

		logger.Info().
			Str("grpc_addr", cfg.Master.GRPCAddr).
			Str("rest_addr", cfg.Master.RESTAddr).
			Msg("master is running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			logger.Error().Err(err).Msg("server failed")
		}

		grpcServer.Stop()
		if err := restServer.Stop(); err != nil {
			logger.Warn().Err(err).Msg("REST shutdown incomplete")
		}
		return nil
	},
}

func init() {
	masterCmd.Flags().String("etcd-endpoints", "", "etcd endpoint (host:port)")
	masterCmd.Flags().String("grpc-addr", "", "gRPC listen address")
	masterCmd.Flags().String("rest-addr", "", "REST listen address")
	masterCmd.Flags().Bool("dev", false, "Use an in-memory store instead of etcd")
}

// loadConfig resolves defaults, config file, env and the global flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = level
	}
	cfg.LogJSON = cfg.LogJSON || jsonOut

	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	return cfg, nil
}
