package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/metrics"
)

func monitoringMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func startMonitoringServer(port string) {
	if port == "" {
		port = "8080"
	}

	logger.Info("starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, monitoringMux()); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	healthy, _ := stats["is_healthy"].(bool)
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}
	json.NewEncoder(w).Encode(response)
}

func statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
