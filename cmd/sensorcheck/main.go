package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	configPath  string
	verbosity   string
	metricsAddr string
	plotDir     string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "sensorcheck",
		Short: "Acceptance tests for data rate sensors behind a COMSERVER",
		Long: `sensorcheck starts the COMSERVER telemetry producer, samples the rx data rate
it reports for the configured test run time and decides PASS or FAIL against
the limits of the sensor part number. Every verdict is appended to the
result ledger (CSV).

Examples:
  sensorcheck run --config cmd/config.json --serial SN-0001
  sensorcheck session --config cmd/config.json --metrics-addr :9100
  sensorcheck config init --output setup.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(o.verbosity)
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "cmd/config.json", "Path to the test configuration file (JSON or YAML)")
	root.PersistentFlags().StringVar(&o.verbosity, "verbosity", "info", "Logging verbosity - choose from [info, debug, trace]")
	root.PersistentFlags().StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	root.PersistentFlags().StringVar(&o.plotDir, "plot-dir", "", "Write a PNG of the samples of every run into this directory")

	root.AddCommand(newRunCommand(o), newSessionCommand(o), newConfigCommand(o))

	return root
}

func setupLogging(verbosity string) {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.StampMilli,
		FullTimestamp:   true,
	})
	log.SetOutput(os.Stdout)

	switch verbosity {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "trace":
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
