// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/platform/metrics"
)

/*
TestCollector_Middleware labels requests by route pattern and status class.
*/
func TestCollector_Middleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	router := chi.NewRouter()
	router.Use(collector.Middleware)
	router.Get("/api/todos/{id}", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/todos/"+id, nil))
	}

	families, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, family := range families {
		if family.GetName() != "todos_http_requests_total" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		assert.Equal(t, 2.0, family.GetMetric()[0].GetCounter().GetValue())
		found = true
	}
	assert.True(t, found)
}

/*
TestCollector_DomainCounters increments the todo and chat counters.
*/
func TestCollector_DomainCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	collector.RecordTodoMutation("create")
	collector.RecordTodoMutation("create")
	collector.RecordToolCall("show_todos", "ok")
	collector.RecordChatTurn("stop")

	families, err := registry.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				values[family.GetName()] += counter.GetValue()
			}
		}
	}

	assert.Equal(t, 2.0, values["todos_todo_mutations_total"])
	assert.Equal(t, 1.0, values["todos_chat_tool_calls_total"])
	assert.Equal(t, 1.0, values["todos_chat_turns_total"])
}

/*
TestHandler serves the text exposition format.
*/
func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewCollector(registry).RecordChatTurn("stop")

	recorder := httptest.NewRecorder()
	metrics.Handler(registry).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `todos_chat_turns_total{reason="stop"} 1`)
}
