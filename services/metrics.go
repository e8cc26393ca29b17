package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fanoutWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fanout_writes_total",
			Help: "Total number of follower feed writes performed by fanout",
		},
		[]string{"class"},
	)

	fanoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fanout_duration_seconds",
			Help:    "Duration of fanOutPost calls in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"class"},
	)

	feedReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_read_total",
			Help: "Feed page reads by the path that produced the page",
		},
		[]string{"path"},
	)

	storeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_store_errors_total",
			Help: "Cache and durable store errors swallowed by the feed engine",
		},
		[]string{"op"},
	)

	feedTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_tasks_total",
			Help: "Background feed tasks processed",
		},
		[]string{"action", "status"},
	)
)

const (
	readPathCache   = "cache"
	readPathDurable = "durable"
	readPathEmpty   = "empty"
)
