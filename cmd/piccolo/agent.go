package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/piccolo-io/piccolo/pkg/agent"
	"github.com/piccolo-io/piccolo/pkg/log"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the Piccolo node agent",
	Long: `Run the Piccolo node agent: register with the master
(PICCOLO_MASTER_IP), heartbeat with resource usage and the local
container list, and serve artifact commands from the master.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("master-addr"); v != "" {
			cfg.Agent.MasterAddr = v
		}
		if v, _ := cmd.Flags().GetString("node-name"); v != "" {
			cfg.Agent.NodeName = v
		}
		if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
			cfg.Agent.DataDir = v
		}
		if cfg.Agent.MasterAddr == "" {
			return fmt.Errorf("master address is required (set PICCOLO_MASTER_IP or --master-addr)")
		}

		logger := log.WithComponent("agent")

		nodeName := cfg.Agent.NodeName
		if nodeName == "" {
			nodeName, _ = os.Hostname()
		}

		// Container runtime is optional: a node without one still
		// registers and heartbeats.
		var reporter agent.ContainerReporter
		if r, err := agent.NewDockerReporter(nodeName); err != nil {
			logger.Warn().Err(err).Msg("container runtime unavailable; reporting without containers")
		} else {
			reporter = r
			defer r.Close()
		}

		a, err := agent.NewAgent(cfg.Agent, reporter, agent.NewProcSampler("/"), nil)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutting down")
		cancel()

		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			logger.Warn().Msg("shutdown budget exceeded, aborting")
			return nil
		}
	},
}

func init() {
	agentCmd.Flags().String("master-addr", "", "Master gRPC address (host:port)")
	agentCmd.Flags().String("node-name", "", "Node name (default: hostname)")
	agentCmd.Flags().String("data-dir", "", "Agent data directory")
}
