package table

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_table_page_loads_total",
		Help: "Page loads by result (ok, error, superseded)",
	}, []string{"result"})

	selectionChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_table_selection_changes_total",
		Help: "Identifiers added to or removed from selections by action",
	}, []string{"action"})

	bulkRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artwork_table_bulk_rejected_total",
		Help: "Bulk-select counts rejected because they exceeded the available rows",
	})
)
