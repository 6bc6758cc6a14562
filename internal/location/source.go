package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/geo"
)

// ErrClosed is returned when a source's stream ends.
var ErrClosed = errors.New("source closed")

// Source produces position fixes. Run blocks until ctx is done or the source
// fails; it is called again after a failure.
type Source interface {
	Name() string
	Run(ctx context.Context, emit func(geo.Point)) error
}

// NewSource builds the source selected by cfg.Source.
func NewSource(cfg config.Server) (Source, error) {
	switch cfg.Source {
	case "demo", "":
		return NewDemoSource(config.DemoFixInterval), nil
	case "serial":
		return &SerialSource{Port: cfg.SerialPort, BaudRate: cfg.BaudRate}, nil
	case "tcp":
		return &TCPSource{Addr: cfg.TCPAddr}, nil
	case "mqtt":
		return &MQTTSource{Broker: cfg.MQTTBroker, Topic: cfg.MQTTTopic}, nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// closeOnDone closes c when ctx is done so blocked reads return.
func closeOnDone(ctx context.Context, c io.Closer) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// SerialSource reads NMEA from a serial GPS receiver.
type SerialSource struct {
	Port     string
	BaudRate uint
}

func (s *SerialSource) Name() string { return "serial:" + s.Port }

func (s *SerialSource) Run(ctx context.Context, emit func(geo.Point)) error {
	opts := serial.OpenOptions{
		PortName:              s.Port,
		BaudRate:              s.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Port, err)
	}
	defer port.Close()
	defer closeOnDone(ctx, port)()

	return ReadNMEA(ctx, port, emit)
}

// TCPSource reads NMEA from a TCP stream, e.g. a phone GPS forwarder.
type TCPSource struct {
	Addr string
}

func (s *TCPSource) Name() string { return "tcp:" + s.address() }

// address fills in localhost and the default NMEA port when missing.
func (s *TCPSource) address() string {
	host, port, err := net.SplitHostPort(s.Addr)
	if err != nil {
		host, port = s.Addr, ""
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = strconv.Itoa(config.NMEATCPPort)
	}
	return net.JoinHostPort(host, port)
}

func (s *TCPSource) Run(ctx context.Context, emit func(geo.Point)) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.address())
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.address(), err)
	}
	defer conn.Close()
	defer closeOnDone(ctx, conn)()

	return ReadNMEA(ctx, conn, emit)
}

// mqttFix is the JSON payload published by GPS producers.
type mqttFix struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	Validity  string   `json:"validity"`
}

// decodeMQTTFix parses a fix payload. Payloads without coordinates or marked
// void ("V") are rejected.
func decodeMQTTFix(payload []byte) (geo.Point, error) {
	var f mqttFix
	if err := json.Unmarshal(payload, &f); err != nil {
		return geo.Point{}, fmt.Errorf("decode fix: %w", err)
	}
	if f.Latitude == nil || f.Longitude == nil {
		return geo.Point{}, errors.New("decode fix: missing lat/lon")
	}
	if f.Validity == "V" {
		return geo.Point{}, errors.New("decode fix: void")
	}
	return geo.Point{Lat: *f.Latitude, Lon: *f.Longitude}, nil
}

// MQTTSource subscribes to a topic carrying JSON fixes.
type MQTTSource struct {
	Broker string
	Topic  string
}

func (s *MQTTSource) Name() string { return "mqtt:" + s.Topic }

func (s *MQTTSource) Run(ctx context.Context, emit func(geo.Point)) error {
	lost := make(chan error, 1)

	opts := mqtt.NewClientOptions().
		AddBroker(s.Broker).
		SetClientID(fmt.Sprintf("scanmap-%d", time.Now().UnixNano())).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case lost <- err:
			default:
			}
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", s.Broker, token.Error())
	}
	defer client.Disconnect(250)

	token := client.Subscribe(s.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := decodeMQTTFix(msg.Payload())
		if err != nil {
			return
		}
		emit(p)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.Topic, token.Error())
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-lost:
		return fmt.Errorf("connection lost: %w", err)
	}
}
