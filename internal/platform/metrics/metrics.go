// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics collects Prometheus metrics and serves the scrape endpoint.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "todos"

// Collector holds every application metric.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	requestDuration  *prometheus.HistogramVec
	todoMutations    *prometheus.CounterVec
	chatToolCalls    *prometheus.CounterVec
	chatTurns        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with registerer.
func NewCollector(registerer prometheus.Registerer) *Collector {
	collector := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status class.",
		}, []string{"method", "route", "status"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		todoMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "todo_mutations_total",
			Help:      "Successful todo mutations by operation.",
		}, []string{"operation"}),
		chatToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_tool_calls_total",
			Help:      "Chat tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Completed chat turns by finish reason.",
		}, []string{"reason"}),
	}

	registerer.MustRegister(
		collector.requestsTotal,
		collector.requestsInFlight,
		collector.requestDuration,
		collector.todoMutations,
		collector.chatToolCalls,
		collector.chatTurns,
	)

	return collector
}

// RecordTodoMutation counts one successful create, update or delete.
func (collector *Collector) RecordTodoMutation(operation string) {
	collector.todoMutations.WithLabelValues(operation).Inc()
}

// RecordToolCall counts one chat tool invocation.
func (collector *Collector) RecordToolCall(tool, outcome string) {
	collector.chatToolCalls.WithLabelValues(tool, outcome).Inc()
}

// RecordChatTurn counts one finished chat turn.
func (collector *Collector) RecordChatTurn(reason string) {
	collector.chatTurns.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

func (recorder *statusRecorder) Unwrap() http.ResponseWriter {
	return recorder.ResponseWriter
}

// Middleware records request counts and latency.
//
// Routes are labelled by their chi pattern so path parameters do not
// explode label cardinality.
func (collector *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		collector.requestsInFlight.Inc()
		defer collector.requestsInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		collector.requestsTotal.WithLabelValues(request.Method, route, fmt.Sprintf("%dxx", recorder.status/100)).Inc()
		collector.requestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
