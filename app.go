package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kwv/crewpath/route"
	"github.com/prometheus/client_golang/prometheus"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *route.Config
	Tracker    *route.LayoutTracker
	Analyzer   *route.Analyzer
	Registry   *prometheus.Registry
	Metrics    *route.Metrics
	MQTTClient *route.MQTTClient
	Publisher  *route.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile  string
	QueryFile   string
	GeoJSONFile string
	LayoutFile  string
	LayoutURL   string
	HttpPort    int
	MqttMode    bool
	HttpMode    bool

	out io.Writer
}

// NewApp creates a new App instance
func NewApp() *App {
	reg := prometheus.NewRegistry()
	return &App{
		Tracker:  route.NewLayoutTracker(),
		Registry: reg,
		Metrics:  route.NewMetrics(reg),
		out:      os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.QueryFile = opts.QueryFile
	a.GeoJSONFile = opts.GeoJSONFile
	a.LayoutFile = opts.LayoutFile
	a.LayoutURL = opts.LayoutURL
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// setup loads configuration, builds the analyzer and loads the initial layout
func (a *App) setup(ctx context.Context) error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.Config = config

	analyzer, err := route.NewAnalyzer(config.Engine, route.WithMetrics(a.Metrics))
	if err != nil {
		return err
	}
	a.Analyzer = analyzer

	if config.HasEnvelope() {
		a.Tracker.SetEnvelope(config.Habitat.Envelope)
		log.Printf("Habitat: %s, radius %.2f m, floor height %.2f m",
			config.Habitat.Shape, config.Habitat.Radius, config.Habitat.FloorHeight)
	}

	return a.loadLayout(ctx)
}

// loadConfig reads the config file. A missing file at the default path is
// not an error; the engine then runs on its defaults.
func (a *App) loadConfig() (*route.Config, error) {
	path := a.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}

	config, err := route.LoadConfig(path)
	if err == nil {
		log.Printf("Loaded config from %s", path)
		return config, nil
	}

	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) && path == defaultConfigFile {
		log.Printf("No %s found, using engine defaults", path)
		return route.DefaultConfig(), nil
	}
	return nil, fmt.Errorf("failed to load config: %w", err)
}

// loadLayout loads the initial layout from a file or URL, flags first
func (a *App) loadLayout(ctx context.Context) error {
	file := a.LayoutFile
	if file == "" {
		file = a.Config.Habitat.LayoutFile
	}
	url := a.LayoutURL
	if url == "" {
		url = a.Config.Habitat.LayoutURL
	}

	var (
		layout *route.Layout
		source string
		err    error
	)
	switch {
	case file != "":
		layout, err = route.ParseLayoutFile(file)
		source = file
	case url != "":
		layout, err = route.FetchLayout(ctx, url)
		source = url
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading layout from %s: %w", source, err)
	}

	if layout.Envelope.Shape == "" && a.Config.HasEnvelope() {
		layout.Envelope = a.Config.Habitat.Envelope
	}
	a.Tracker.UpdateLayout(*layout)
	log.Printf("Loaded layout from %s: %d modules", source, len(layout.Obstacles))
	return nil
}

// RunQuery answers the query in QueryFile and prints the analysis
func (a *App) RunQuery() error {
	ctx := context.Background()
	if err := a.setup(ctx); err != nil {
		return err
	}

	q, err := route.ParseQueryFile(a.QueryFile)
	if err != nil {
		return fmt.Errorf("failed to read query %s: %w", a.QueryFile, err)
	}

	res, err := a.Tracker.Run(ctx, a.Analyzer, *q)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	fmt.Fprintln(a.out, string(data))

	if a.GeoJSONFile != "" {
		if err := a.writeGeoJSON(a.GeoJSONFile); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "GeoJSON written to %s\n", a.GeoJSONFile)
	}
	return nil
}

// writeGeoJSON exports the latest analysis
func (a *App) writeGeoJSON(path string) error {
	res, layout, ok := a.Tracker.Latest()
	if !ok {
		return fmt.Errorf("no analysis to export")
	}
	fc := route.AnalysisToGeoJSON(res, layout, a.Analyzer.Params().SearchOccupancyTolerance)
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON: %w", err)
	}
	return nil
}

// handleQuery is the MQTT query callback
func (a *App) handleQuery(ctx context.Context) route.QueryHandler {
	return func(q *route.Query, err error) {
		if err != nil {
			log.Printf("[MQTT] Dropping query: %v", err)
			return
		}
		res, err := a.Tracker.Run(ctx, a.Analyzer, *q)
		if err != nil {
			log.Printf("[MQTT] Query %s failed: %v", q.ID, err)
			return
		}
		a.publish(res)
	}
}

// handleLayout is the MQTT layout callback
func (a *App) handleLayout(l *route.Layout, err error) {
	if err != nil {
		log.Printf("[MQTT] Dropping layout: %v", err)
		return
	}
	if l.Envelope.Shape == "" && a.Config != nil && a.Config.HasEnvelope() {
		l.Envelope = a.Config.Habitat.Envelope
	}
	a.Tracker.UpdateLayout(*l)
	log.Printf("[MQTT] Layout updated: %d modules", len(l.Obstacles))
}

// publish sends an analysis to MQTT when a publisher is configured
func (a *App) publish(res *route.Analysis) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishAnalysis(res); err != nil {
		log.Printf("[MQTT] Error publishing analysis %s: %v", res.QueryID, err)
	}
}

// RunService runs MQTT and/or HTTP until interrupted
func (a *App) RunService() error {
	fmt.Fprintln(a.out, "Starting crewpath service...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.setup(ctx); err != nil {
		return err
	}

	if a.MqttMode {
		mqttClient, err := route.InitMQTT(a.Config, a.handleQuery(ctx), a.handleLayout)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured in config.yaml")
		}
		a.MQTTClient = mqttClient
		a.Publisher = route.NewPublisher(mqttClient.GetClient(), a.Config.MQTT.PublishPrefix)
		fmt.Fprintln(a.out, "MQTT analysis publisher initialized")
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.Tracker, a.Analyzer, a.Registry, a.Publisher, a.publish),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[HTTP] Server error: %v", err)
				stop()
			}
		}()
	}

	a.printServiceInfo()
	<-ctx.Done()

	fmt.Fprintln(a.out, "\nShutting down service...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.out, "Service stopped")
	return nil
}

func (a *App) printServiceInfo() {
	fmt.Fprintln(a.out, "\nService Running")
	fmt.Fprintln(a.out, "===============")

	if a.MqttMode {
		fmt.Fprintln(a.out, "\nMQTT:")
		fmt.Fprintln(a.out, "  Subscribed topics:")
		fmt.Fprintf(a.out, "    - %s (queries)\n", a.Config.MQTT.QueryTopic)
		fmt.Fprintf(a.out, "    - %s (layout)\n", a.Config.MQTT.LayoutTopic)
		if a.Publisher != nil {
			fmt.Fprintf(a.out, "  Publishing to: %s and %s\n", a.Publisher.AnalysisTopic(), a.Publisher.StatusTopic())
		}
	}

	if a.HttpMode {
		fmt.Fprintf(a.out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.out, "  GET  /health         - Health check")
		fmt.Fprintln(a.out, "  GET  /layout         - Current habitat layout")
		fmt.Fprintln(a.out, "  PUT  /layout         - Replace the habitat layout")
		fmt.Fprintln(a.out, "  POST /analyze        - Answer a path query")
		fmt.Fprintln(a.out, "  GET  /analysis       - Latest analysis")
		fmt.Fprintln(a.out, "  GET  /route.geojson  - Latest analysis as GeoJSON")
		fmt.Fprintln(a.out, "  GET  /metrics        - Prometheus metrics")
	}

	fmt.Fprintln(a.out, "\nPress Ctrl+C to stop")
}
