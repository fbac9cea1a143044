package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kwv/crewpath/route"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps query and layout uploads
const maxBodyBytes = 4 << 20

// newHTTPServer creates an HTTP server with all endpoints.
// onAnalysis, if set, receives every analysis produced by POST /analyze.
// publisher may be nil when MQTT is off.
func newHTTPServer(tracker *route.LayoutTracker, analyzer *route.Analyzer, gatherer prometheus.Gatherer, publisher *route.Publisher, onAnalysis func(*route.Analysis)) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		status := struct {
			Status          string                `json:"status"`
			Timestamp       time.Time             `json:"timestamp"`
			HasLayout       bool                  `json:"hasLayout"`
			LayoutUpdatedAt time.Time             `json:"layoutUpdatedAt,omitzero"`
			LastPublished   *route.AnalysisStatus `json:"lastPublished,omitempty"`
		}{
			Status:          "ok",
			Timestamp:       time.Now(),
			HasLayout:       tracker.HasLayout(),
			LayoutUpdatedAt: tracker.UpdatedAt(),
		}
		if last, ok := publisher.LastStatus(); ok {
			status.LastPublished = last
		}
		writeJSON(w, http.StatusOK, status)
	})

	// Current layout
	mux.HandleFunc("/layout", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			layout, ok := tracker.Snapshot()
			if !ok {
				http.Error(w, "No layout loaded", http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, layout)

		case http.MethodPut:
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				http.Error(w, "Error reading body", http.StatusBadRequest)
				return
			}
			layout, err := route.ParseLayoutJSON(body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := layout.Envelope.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			tracker.UpdateLayout(*layout)
			log.Printf("[HTTP] Layout replaced: %d modules", len(layout.Obstacles))
			w.WriteHeader(http.StatusNoContent)

		default:
			w.Header().Set("Allow", "GET, PUT")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Answer a path query
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Error reading body", http.StatusBadRequest)
			return
		}
		q, err := route.ParseQueryJSON(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := tracker.Run(r.Context(), analyzer, *q)
		if err != nil {
			if errors.Is(err, route.ErrInvalidQuery) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Printf("[HTTP] /analyze failed: %v", err)
			http.Error(w, "Analysis failed", http.StatusInternalServerError)
			return
		}
		if onAnalysis != nil {
			onAnalysis(res)
		}
		writeJSON(w, http.StatusOK, res)
	})

	// Latest analysis
	mux.HandleFunc("/analysis", func(w http.ResponseWriter, r *http.Request) {
		res, _, ok := tracker.Latest()
		if !ok {
			http.Error(w, "No analysis available", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	// Latest analysis as GeoJSON
	mux.HandleFunc("/route.geojson", func(w http.ResponseWriter, r *http.Request) {
		res, layout, ok := tracker.Latest()
		if !ok {
			http.Error(w, "No analysis available", http.StatusNotFound)
			return
		}
		fc := route.AnalysisToGeoJSON(res, layout, analyzer.Params().SearchOccupancyTolerance)
		data, err := fc.MarshalJSON()
		if err != nil {
			log.Printf("Error encoding GeoJSON: %v", err)
			http.Error(w, "Error encoding GeoJSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing GeoJSON: %v", err)
		}
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
