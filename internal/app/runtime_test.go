package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skobkin/oystergo/internal/config"
	"github.com/skobkin/oystergo/internal/connectors"
	"github.com/skobkin/oystergo/internal/transport"
)

const runtimeInput = `{"device":"2c321c","data":"20945376e9713269569a16cd","snr":"12.5","rssi":"-130.00","station":"1B2C"}
not-hex
{"device":"2c321c","data":"02a315072c8144931e5a960b"}
11000a14aabbccddeeff0011
`

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()

	return Paths{
		RootDir:    dir,
		ConfigFile: filepath.Join(dir, ConfigFilename),
		LogFile:    filepath.Join(dir, LogFilename),
	}
}

func TestRuntimeProcessesBoundedInput(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	var out, logs bytes.Buffer
	cfg := config.Default()
	cfg.Output.IntegrationName = "fleet"

	rt, err := Initialize(context.Background(), testPaths(t), cfg, Options{
		Transport:  transport.NewReaderTransport("test", strings.NewReader(runtimeInput)),
		Output:     &out,
		LogConsole: &logs,
	})
	if err != nil {
		t.Fatalf("initialize runtime: %v", err)
	}

	select {
	case <-rt.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("runtime did not finish bounded input")
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close runtime: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 uplinks, got %d: %q", len(lines), out.String())
	}

	var first struct {
		DeviceName string         `json:"deviceName"`
		Attributes map[string]any `json:"attributes"`
		Telemetry  map[string]any `json:"telemetry"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first uplink: %v", err)
	}
	if first.DeviceName != "2C321C" {
		t.Fatalf("unexpected device name %q", first.DeviceName)
	}
	if first.Attributes["integrationName"] != "fleet" || first.Attributes["signalQuality"] != "fair" {
		t.Fatalf("unexpected attributes: %v", first.Attributes)
	}
	if first.Telemetry["station"] != "1B2C" {
		t.Fatalf("expected passthrough station, got %v", first.Telemetry["station"])
	}

	if got := rt.LinesRead(); got != 4 {
		t.Fatalf("expected 4 lines read, got %d", got)
	}
	if got := rt.DecodeFailures(); got != 1 {
		t.Fatalf("expected 1 decode failure, got %d", got)
	}
	status, known := rt.CurrentConnStatus()
	if !known || status.State != connectors.ConnectionStateExhausted {
		t.Fatalf("expected exhausted status, got %+v (known=%v)", status, known)
	}

	dev, ok := rt.Devices.Get("2C321C")
	if !ok {
		t.Fatalf("expected device 2C321C in store")
	}
	if dev.Uplinks != 2 || dev.Stats == nil || !dev.LastFixFailed {
		t.Fatalf("unexpected device state: %+v", dev)
	}
	if _, ok := rt.Devices.Get("unknown"); !ok {
		t.Fatalf("expected bare hex uplink under unknown device")
	}

	rt.LogSnapshot(rt.LogManager.Logger("test"))
	if !strings.Contains(logs.String(), "device snapshot") {
		t.Fatalf("expected snapshot in logs, got %q", logs.String())
	}
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.Connector = config.ConnectorSerial
	cfg.Connection.SerialPort = ""

	if _, err := Initialize(context.Background(), testPaths(t), cfg, Options{LogConsole: &bytes.Buffer{}}); err == nil {
		t.Fatalf("expected invalid config error")
	}
}

func TestRuntimeStopsPromptlyOnIdleTCPFeed(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	cfg := config.Default()
	cfg.Connection.Connector = config.ConnectorIP
	cfg.Connection.Host = "127.0.0.1"
	cfg.Connection.Port = ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt, err := Initialize(ctx, testPaths(t), cfg, Options{Output: &bytes.Buffer{}, LogConsole: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("initialize runtime: %v", err)
	}
	if status, known := rt.CurrentConnStatus(); !known || status.TransportName != "ip" {
		t.Fatalf("expected status seeded from config, got %+v (known=%v)", status, known)
	}

	var peer net.Conn
	select {
	case peer = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatalf("runtime did not connect")
	}
	t.Cleanup(func() { _ = peer.Close() })

	cancel()
	start := time.Now()
	if err := rt.Close(); err != nil {
		t.Fatalf("close runtime: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("close took %s on an idle feed", elapsed)
	}
	select {
	case <-rt.Done():
	default:
		t.Fatalf("uplink service still running after close")
	}
	status, _ := rt.CurrentConnStatus()
	if status.State != connectors.ConnectionStateDisconnected {
		t.Fatalf("expected disconnected status, got %+v", status)
	}
}

func TestRuntimeSnapshotReachesLogFileAfterStop(t *testing.T) {
	origDefault := slog.Default()
	t.Cleanup(func() { slog.SetDefault(origDefault) })

	paths := testPaths(t)
	cfg := config.Default()
	cfg.Logging.LogToFile = true

	rt, err := Initialize(context.Background(), paths, cfg, Options{
		Transport:  transport.NewReaderTransport("test", strings.NewReader(runtimeInput)),
		Output:     &bytes.Buffer{},
		LogConsole: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("initialize runtime: %v", err)
	}
	select {
	case <-rt.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("runtime did not finish bounded input")
	}

	rt.Stop()
	rt.LogSnapshot(rt.LogManager.Logger("test"))
	if err := rt.Close(); err != nil {
		t.Fatalf("close runtime: %v", err)
	}

	raw, err := os.ReadFile(paths.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "device snapshot") || !strings.Contains(string(raw), "lines_read=4") {
		t.Fatalf("expected snapshot in log file, got %q", raw)
	}
}
