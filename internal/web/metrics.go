package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_table_http_requests_total",
		Help: "Handled UI requests by route and status code",
	}, []string{"route", "code"})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artwork_table_sessions",
		Help: "Live sessions in the session store",
	})
)
