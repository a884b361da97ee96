package metric

import "github.com/prometheus/client_golang/prometheus"

// State is a point-in-time view of the client.
type State struct {
	Authenticated bool
	StoreEngine   string
}

// StateCollector reports client state computed at gather time.
type StateCollector struct {
	snapshot func() State

	authenticated *prometheus.Desc
	storeInfo     *prometheus.Desc
}

// NewCollector creates a collector that calls snapshot on every gather.
func NewCollector(snapshot func() State) *StateCollector {
	return &StateCollector{
		snapshot: snapshot,
		authenticated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "authenticated"),
			"1 when a user identity is held, 0 otherwise.",
			nil, nil,
		),
		storeInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "info"),
			"Persistent store engine in use.",
			[]string{"engine"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.authenticated
	ch <- c.storeInfo
}

// Collect implements prometheus.Collector.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	auth := 0.0
	if s.Authenticated {
		auth = 1
	}
	ch <- prometheus.MustNewConstMetric(c.authenticated, prometheus.GaugeValue, auth)
	ch <- prometheus.MustNewConstMetric(c.storeInfo, prometheus.GaugeValue, 1, s.StoreEngine)
}
