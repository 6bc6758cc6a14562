package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scanmap.klederson.com/internal/app"
	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/fetch"
	"scanmap.klederson.com/internal/location"
)

var (
	dashboard config.Dashboard
	server    config.Server
	flagDebug bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scanmap",
		Short: "SCAN-MAP - Terminal map of GPS-tagged scan locations",
		Long: `SCAN-MAP polls a location server for GPS-tagged scan locations and draws
them on a terminal map with a heatmap and the receiver's last known position.

Use --demo to run against an embedded location server with a simulated receiver.`,
		RunE:         runDashboard,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&dashboard.URL, "url", config.DefaultURL, "Location feed to poll")
	rootCmd.Flags().DurationVar(&dashboard.Refresh, "refresh", config.RefreshDefault, "Refresh interval (1s to 100s)")
	rootCmd.Flags().DurationVar(&dashboard.Timeout, "timeout", config.FetchTimeout, "Request timeout")
	rootCmd.Flags().StringVar(&dashboard.LogFile, "log-file", "", "Write logs to this file")
	rootCmd.Flags().BoolVar(&dashboard.Demo, "demo", false, "Poll an embedded demo server (no GPS required)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GPS fixes as /gjson and /kml",
		Long: `serve collects fixes from a GPS receiver and publishes them over HTTP.

Sources:
  demo    simulated receiver walking around a city
  serial  NMEA receiver on a serial port
  tcp     NMEA stream over TCP (default port 10110)
  mqtt    JSON fixes {"lat":..,"lon":..} on an MQTT topic`,
		RunE:         runServe,
		SilenceUsage: true,
	}

	serveCmd.Flags().StringVar(&server.Listen, "listen", fmt.Sprintf("127.0.0.1:%d", config.LocationPort), "HTTP listen address")
	serveCmd.Flags().StringVar(&server.Source, "source", "demo", "Fix source: demo, serial, tcp or mqtt")
	serveCmd.Flags().StringVar(&server.SerialPort, "serial-port", "/dev/ttyUSB0", "Serial port of the GPS receiver")
	serveCmd.Flags().UintVar(&server.BaudRate, "baud", 9600, "Serial baud rate")
	serveCmd.Flags().StringVar(&server.TCPAddr, "tcp-addr", fmt.Sprintf("localhost:%d", config.NMEATCPPort), "NMEA TCP address")
	serveCmd.Flags().StringVar(&server.MQTTBroker, "mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")
	serveCmd.Flags().StringVar(&server.MQTTTopic, "mqtt-topic", "scanmap/gps", "MQTT topic carrying fixes")
	serveCmd.Flags().DurationVar(&server.FixTimeout, "fix-timeout", config.FixTimeout, "Warn when no fix arrives for this long")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if flagDebug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func runDashboard(cmd *cobra.Command, args []string) error {
	// The alt screen owns the terminal, so logs go to a file or nowhere.
	out := io.Discard
	if dashboard.LogFile != "" {
		f, err := os.OpenFile(dashboard.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log := newLogger(out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := dashboard.URL
	source := url
	if dashboard.Demo {
		demoURL, err := startDemoServer(ctx, log)
		if err != nil {
			return err
		}
		url = demoURL
		source = "demo"
	}

	fetcher := fetch.New(url, dashboard.Timeout)
	model := app.New(source, fetcher.Fetch, config.ClampRefresh(dashboard.Refresh), log)
	log.WithFields(logrus.Fields{"url": url, "refresh": dashboard.Refresh}).Info("dashboard started")

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// startDemoServer runs a location server with a simulated receiver on a
// loopback port and returns its feed URL.
func startDemoServer(ctx context.Context, log logrus.FieldLogger) (string, error) {
	gin.SetMode(gin.ReleaseMode)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("demo server: %w", err)
	}

	svc := location.NewService(location.NewDemoSource(config.DemoFixInterval), 0, log)
	go func() {
		if err := svc.Serve(ctx, ln); err != nil {
			log.WithError(err).Error("demo server stopped")
		}
	}()

	return "http://" + ln.Addr().String() + config.GJSONPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger(os.Stderr)
	if !flagDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	src, err := location.NewSource(server)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Listen, err)
	}

	svc := location.NewService(src, server.FixTimeout, log)
	start := time.Now()
	err = svc.Serve(ctx, ln)
	log.WithFields(logrus.Fields{
		"uptime":    time.Since(start).Round(time.Second),
		"locations": svc.Store().Count(),
	}).Info("location server stopped")
	return err
}
