package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/config"
	"github.com/vhive-serverless/sensorcheck/pkg/driver"
	mc "github.com/vhive-serverless/sensorcheck/pkg/metric"
	"github.com/vhive-serverless/sensorcheck/pkg/stats"
)

var errTestFailed = errors.New("sensor failed the acceptance test")

func newRunCommand(o *options) *cobra.Command {
	var serial string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the COMSERVER, run one test and stop it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, shutdown, err := newDriver(ctx, o)
			if err != nil {
				return err
			}
			defer shutdown()

			if err := d.StartProducer(ctx); err != nil {
				return err
			}

			report, err := d.RunTest(ctx, serial)
			if report != nil {
				printSummary(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}
			if !report.Result.Passed() {
				return errTestFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&serial, "serial", "s", "", "Serial number of the sensor under test")

	return cmd
}

func newSessionCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Keep the COMSERVER running and test one sensor per serial number read from stdin",
		Long: `session starts the COMSERVER and reads one line per test from stdin: a
serial number runs a test, "start" and "stop" control the COMSERVER, "status"
prints the sensor status and "quit" ends the session. Edits to the
configuration file apply from the next test on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, shutdown, err := newDriver(ctx, o)
			if err != nil {
				return err
			}
			defer shutdown()

			go func() {
				if err := config.Watch(ctx, o.configPath, d.UpdateConfiguration); err != nil {
					log.Warnf("Configuration changes will not be picked up: %v", err)
				}
			}()

			if err := d.StartProducer(ctx); err != nil {
				return err
			}

			return runSession(ctx, d, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// newDriver loads the configuration and wires the optional metrics endpoint.
func newDriver(ctx context.Context, o *options) (*driver.Driver, func(), error) {
	cfg, err := loadConfiguration(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	driverConfig := &driver.DriverConfiguration{
		PlotDirectory: o.plotDir,
		OnProgress: func(remaining int) {
			log.Debugf("Test run time remaining: %d s", remaining)
		},
	}

	var server *http.Server
	if o.metricsAddr != "" {
		driverConfig.Metrics = mc.NewRunMetrics()

		mux := http.NewServeMux()
		mux.Handle("/metrics", driverConfig.Metrics.Handler())
		server = &http.Server{Addr: o.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			log.Infof("Serving metrics on %s/metrics", o.metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	d := driver.NewDriver(cfg, driverConfig)

	shutdown := func() {
		d.Close()
		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}
	}

	return d, shutdown, nil
}

type testRunner interface {
	RunTest(ctx context.Context, serialNumber string) (*driver.Report, error)
	StartProducer(ctx context.Context) error
	Stop()
	ProducerRunning() bool
	SensorStatus() common.SensorStatus
}

func runSession(ctx context.Context, d testRunner, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "Enter a sensor serial number to start a test (start, stop, status, quit):")

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "quit", "exit":
			return nil
		case "start":
			if err := d.StartProducer(ctx); err != nil {
				log.Errorf("Failed to start the COMSERVER: %v", err)
			}
		case "stop":
			d.Stop()
		case "status":
			running := "Not Running"
			if d.ProducerRunning() {
				running = "Running"
			}
			fmt.Fprintf(out, "COMSERVER: %s, sensor: %s\n", running, d.SensorStatus())
		default:
			report, err := d.RunTest(ctx, line)
			if report != nil {
				printSummary(out, report)
			}
			if err != nil {
				log.Error(err)
			}
		}
	}
}

// printSummary shows the figures of one run; values outside their limit are marked with (!).
func printSummary(out io.Writer, report *driver.Report) {
	result := report.Result

	mark := func(bad bool) string {
		if bad {
			return " (!)"
		}
		return ""
	}

	average := stats.Round(result.AverageDataRate, 2)
	stdDev := stats.Round(result.StdDev, 2)

	fmt.Fprintf(out, "Sensor Part Number: %s\n", result.SensorPartNumber)
	fmt.Fprintf(out, "Sensor Serial Number: %s\n", result.SerialNumber)
	fmt.Fprintf(out, "Average Data Rate: %.2f MB/s%s\n", average,
		mark(result.AverageDataRate < result.MinDataRateLimit || result.AverageDataRate > result.MaxDataRateLimit))
	fmt.Fprintf(out, "Standard Deviation: %.2f%s\n", stdDev, mark(result.StdDev > result.MaxStdDevLimit))
	fmt.Fprintf(out, "Errors: %d%s\n", result.Errors, mark(result.Errors > 0))
	fmt.Fprintf(out, "Test Output: %s\n", result.Verdict)
}

var _ testRunner = (*driver.Driver)(nil)
