package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	opCreate = "create"
	opUpsert = "upsert"
	opDelete = "delete"

	dnsResultMatch    = "match"
	dnsResultMismatch = "mismatch"
	dnsResultError    = "error"
)

var (
	vhostOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yk_vhost_manager_vhost_operations_total",
		Help: "Virtual host mutations sent to the provider, by operation and result.",
	}, []string{"operation", "result"})

	dnsChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yk_vhost_manager_dns_checks_total",
		Help: "DNS verifications of managed hostnames, by result.",
	}, []string{"result"})
)

func init() {
	metrics.Registry.MustRegister(vhostOperations, dnsChecks)
}

func observe(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	vhostOperations.WithLabelValues(operation, result).Inc()
}
