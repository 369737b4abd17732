// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "serial_novel"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// 业务指标 - 小说生成
	NovelGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "novels_total",
			Help:      "Total number of novel generation runs by terminal status",
		},
		[]string{"status"},
	)

	ChaptersCommittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "chapters_committed_total",
			Help:      "Total number of chapters committed to the store",
		},
	)

	ChapterGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "chapter_duration_seconds",
			Help:      "Single chapter generation duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	ChapterRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "chapter_retries_total",
			Help:      "Total number of chapter generation retries",
		},
	)

	GenerationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "failures_total",
			Help:      "Total number of terminal generation failures by reason",
		},
		[]string{"reason"},
	)

	ActiveRunners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "active_runners",
			Help:      "Current number of active generation runners",
		},
	)

	ChapterWordCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "chapter_word_count",
			Help:      "Generated chapter length in runes",
			Buckets:   []float64{500, 1000, 2000, 3000, 5000, 10000},
		},
	)

	// LLM 指标
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	LLMCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_total",
			Help:      "Total number of LLM calls",
		},
		[]string{"provider", "operation", "status"},
	)

	// 增量拉取指标
	RetrievalPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reading",
			Name:      "polls_total",
			Help:      "Total number of incremental chapter polls",
		},
		[]string{"outcome"}, // new_chapters / empty
	)

	RetrievalChaptersReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reading",
			Name:      "chapters_returned_total",
			Help:      "Total number of chapters returned to polling clients",
		},
	)
)
