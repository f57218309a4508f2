// Package routing delivers encoded pose messages to downstream consumers.
package routing

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"vn310d/internal/config"
)

// ErrNotConnected is returned while the broker link is down. Callers drop
// the message.
var ErrNotConnected = errors.New("routing: not connected")

// Router sends one payload to a board/tile destination.
type Router interface {
	RouteMessage(payload []byte, board, tile int) error
	Close() error
}

// Topic is the MQTT topic for a pose sent to board/tile.
func Topic(prefix string, board, tile int) string {
	t := fmt.Sprintf("board/%d/tile/%d/pose", board, tile)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return t
	}
	return prefix + "/" + t
}

// Nop discards every message.
type Nop struct{}

func (Nop) RouteMessage([]byte, int, int) error { return nil }
func (Nop) Close() error                        { return nil }

// New picks the router for cfg.Broker: MQTT for tcp/ssl/ws, a datagram
// sender for udp, Nop when unset. MQTT routers are returned unconnected.
func New(cfg config.RoutingConfig, logger *zap.Logger) (Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Scheme() {
	case "":
		logger.Info("pose routing disabled")
		return Nop{}, nil
	case "udp":
		u, err := url.Parse(cfg.Broker)
		if err != nil {
			return nil, err
		}
		return NewUDP(u.Host, logger)
	default:
		return NewMQTT(cfg, logger), nil
	}
}
