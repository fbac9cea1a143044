package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

const defaultConfigFile = "config.yaml"

// AppOptions holds the parsed command-line flags
type AppOptions struct {
	ConfigFile  string
	QueryFile   string
	GeoJSONFile string
	LayoutFile  string
	LayoutURL   string
	HttpPort    int
	MqttMode    bool
	HttpMode    bool
}

// Application is the set of run modes the CLI dispatches to
type Application interface {
	ApplyOptions(opts AppOptions)
	RunQuery() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "crewpath: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet("crewpath", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", defaultConfigFile, "Path to configuration file")
	fs.StringVar(&opts.QueryFile, "query", "", "Answer the path query in this JSON file and exit")
	fs.StringVar(&opts.GeoJSONFile, "geojson", "", "Write the --query result as GeoJSON to this file")
	fs.StringVar(&opts.LayoutFile, "layout", "", "Habitat layout JSON file (overrides habitat.layoutFile)")
	fs.StringVar(&opts.LayoutURL, "layout-url", "", "Fetch the habitat layout from this URL (overrides habitat.layoutUrl)")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode, answering queries from the query topic")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for queries, layout and GeoJSON")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "crewpath version: %s\n", Version)
	app.ApplyOptions(opts)

	if opts.QueryFile != "" {
		return app.RunQuery()
	}

	if opts.MqttMode || opts.HttpMode {
		return app.RunService()
	}

	fmt.Fprintln(out, "crewpath service starting...")
	fmt.Fprintln(out, "Use --query=FILE to answer a single path query")
	fmt.Fprintln(out, "Use --query=FILE --geojson=OUT to also export the route as GeoJSON")
	fmt.Fprintln(out, "Use --mqtt to answer queries published on MQTT")
	fmt.Fprintln(out, "Use --http to run the HTTP API")
	fmt.Fprintln(out, "Use --mqtt --http to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - engine constants, habitat envelope and MQTT settings")
	return nil
}
