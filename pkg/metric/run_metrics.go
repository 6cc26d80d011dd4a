package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vhive-serverless/sensorcheck/pkg/common"
	"github.com/vhive-serverless/sensorcheck/pkg/monitor"
	"github.com/vhive-serverless/sensorcheck/pkg/verdict"
)

var sensorStatuses = []common.SensorStatus{
	common.StatusNotRunning,
	common.StatusRunning,
	common.StatusSensorNotConnected,
}

// RunMetrics exposes test outcomes and the watchdog status to Prometheus.
type RunMetrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	samples      prometheus.Counter
	anomalies    *prometheus.CounterVec
	averageRate  prometheus.Gauge
	stdDev       prometheus.Gauge
	sensorStatus *prometheus.GaugeVec
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorcheck_test_runs_total",
			Help: "Completed test runs by verdict.",
		}, []string{"verdict"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensorcheck_samples_total",
			Help: "Data rate samples accepted across all runs.",
		}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorcheck_anomalies_total",
			Help: "Stream anomalies by kind across all runs.",
		}, []string{"kind"}),
		averageRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensorcheck_last_average_data_rate_mbps",
			Help: "Average data rate of the last run in MB/s.",
		}),
		stdDev: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensorcheck_last_std_dev",
			Help: "Standard deviation of the data rate of the last run.",
		}),
		sensorStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sensorcheck_sensor_status",
			Help: "1 for the current COMSERVER status reported by the watchdog.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(m.runs, m.samples, m.anomalies, m.averageRate, m.stdDev, m.sensorStatus)
	m.SetStatus(common.StatusNotRunning)

	return m
}

func (m *RunMetrics) ObserveRun(result verdict.TestResult, acquisition monitor.Acquisition) {
	m.runs.WithLabelValues(string(result.Verdict)).Inc()
	m.samples.Add(float64(len(acquisition.Samples)))
	for kind, count := range acquisition.Anomalies {
		m.anomalies.WithLabelValues(kind.String()).Add(float64(count))
	}
	m.averageRate.Set(result.AverageDataRate)
	m.stdDev.Set(result.StdDev)
}

func (m *RunMetrics) SetStatus(status common.SensorStatus) {
	for _, s := range sensorStatuses {
		value := 0.0
		if s == status {
			value = 1
		}
		m.sensorStatus.WithLabelValues(string(s)).Set(value)
	}
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
