package app

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/skobkin/oystergo/internal/config"
	"github.com/skobkin/oystergo/internal/connectors"
	"github.com/skobkin/oystergo/internal/transport"
)

func TransportNameFromConnector(connector config.ConnectorType) string {
	switch connector {
	case config.ConnectorStdin, config.ConnectorFile, config.ConnectorIP, config.ConnectorSerial:
		return string(connector)
	default:
		if value := strings.TrimSpace(string(connector)); value != "" {
			return value
		}

		return "unknown"
	}
}

// ConnectionTarget names the input a connector reads from.
func ConnectionTarget(cfg config.ConnectionConfig) string {
	switch cfg.Connector {
	case config.ConnectorStdin:
		return transport.StdinPath
	case config.ConnectorFile:
		return strings.TrimSpace(cfg.FilePath)
	case config.ConnectorIP:
		host := strings.TrimSpace(cfg.Host)
		if host == "" {
			return ""
		}
		port := cfg.Port
		if port <= 0 {
			port = DefaultIPPort
		}

		return net.JoinHostPort(host, strconv.Itoa(port))
	case config.ConnectorSerial:
		return strings.TrimSpace(cfg.SerialPort)
	default:
		return ""
	}
}

func ConnectionStatusFromConfig(cfg config.ConnectionConfig) connectors.ConnectionStatus {
	status := connectors.ConnectionStatus{
		State:         connectors.ConnectionStateDisconnected,
		TransportName: TransportNameFromConnector(cfg.Connector),
		Target:        ConnectionTarget(cfg),
	}
	if status.Target != "" {
		status.State = connectors.ConnectionStateConnecting
	}

	return status
}

func NewTransportForConnection(cfg config.ConnectionConfig) (transport.Transport, error) {
	switch cfg.Connector {
	case config.ConnectorStdin:
		return transport.NewStreamTransport(transport.StdinPath), nil
	case config.ConnectorFile:
		return transport.NewStreamTransport(cfg.FilePath), nil
	case config.ConnectorIP:
		return transport.NewIPTransport(cfg.Host, cfg.Port), nil
	case config.ConnectorSerial:
		return transport.NewSerialTransport(cfg.SerialPort, cfg.SerialBaud), nil
	default:
		return nil, fmt.Errorf("unknown connector: %q", cfg.Connector)
	}
}
