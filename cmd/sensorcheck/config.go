package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vhive-serverless/sensorcheck/pkg/config"
)

// templateConfiguration is written by config init.
var templateConfiguration = config.TestConfiguration{
	SensorPartNumber: "A2C-SENSOR-01",
	MinDataRateLimit: 100,
	MaxDataRateLimit: 150,
	MaxStdDevLimit:   10,
	TestRunTime:      10,
	ComserverPath:    "scripts/comserver/fake_comserver.sh",
	TestResultPath:   "data/out/test_results.csv",
}

func newConfigCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check test configuration files",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Export a configuration template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteConfigurationFile(templateConfiguration, output); err != nil {
				return err
			}
			log.Infof("Configuration template written to %s", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "config.json", "Where to write the template (.json, .yaml or .yml)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration given by --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(o.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %.2f-%.2f MB/s, std dev <= %.2f, %d s\n",
				o.configPath, cfg.SensorPartNumber, cfg.MinDataRateLimit, cfg.MaxDataRateLimit,
				cfg.MaxStdDevLimit, cfg.TestRunTime)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func loadConfiguration(path string) (config.TestConfiguration, error) {
	cfg, err := config.ReadConfigurationFile(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
