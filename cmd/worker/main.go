// Command worker runs the pollution-spread simulation worker: it consumes
// simulation requests from RabbitMQ, runs each on a bounded pool of
// concurrent solvers, and publishes the result back to the requester.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kacperpap/air-pollution-tracker/internal/config"
	"github.com/kacperpap/air-pollution-tracker/internal/logging"
	"github.com/kacperpap/air-pollution-tracker/internal/supervisor"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "worker",
		Short: "Pollution-spread simulation worker",
		Long: `worker consumes simulation requests from a RabbitMQ queue, runs each
on a bounded pool of concurrent advection-diffusion solvers, and publishes
the result back to the queue named in the request's reply-to.

Configuration can be supplied via command-line flags, environment variables
(RABBITMQ_URL, RABBITMQ_REQUEST_QUEUE, WORKER_POOL_SIZE, SIMULATION_TIMEOUT,
SHUTDOWN_GRACE, LOG_LEVEL, LOG_FORMAT), or an optional worker.toml
solver-tuning file.`,
		DisableAutoGenTag: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the broker and start processing simulation requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(v)
		},
		DisableAutoGenTag: true,
	}
	config.Bind(v, runCmd.Flags())

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the worker version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("worker %s\n", version)
		},
		DisableAutoGenTag: true,
	}

	root.AddCommand(runCmd, versionCmd)
	return root
}

func runWorker(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.WithFields(map[string]interface{}{
		"version":    version,
		"queue":      cfg.RequestQueue,
		"pool_size":  cfg.WorkerPoolSize,
		"sim_timeout": cfg.SimTimeout,
	}).Info("worker: starting up")

	sup := supervisor.New(cfg, log)
	if err := sup.Run(); err != nil {
		log.WithError(err).Error("worker: exiting after broker session error")
		return err
	}
	log.Info("worker: shut down cleanly")
	return nil
}
