package routing

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type (
	resolveFunc func(network, address string) (*net.UDPAddr, error)
	dialFunc    func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)
)

// UDPRouter sends each pose as one datagram to a fixed destination,
// which may be a broadcast address. Board and tile are carried by the
// destination, not the payload.
type UDPRouter struct {
	dest string
	conn udpConn
	log  *zap.Logger
}

func NewUDP(dest string, logger *zap.Logger) (*UDPRouter, error) {
	return newUDP(dest, logger, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		c, err := net.DialUDP(network, laddr, raddr)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

func newUDP(dest string, logger *zap.Logger, resolve resolveFunc, dial dialFunc) (*UDPRouter, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}
	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("pose routing over udp", zap.String("dest", dest))
	return &UDPRouter{dest: dest, conn: conn, log: logger}, nil
}

func (u *UDPRouter) RouteMessage(payload []byte, _, _ int) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := u.conn.Write(payload)
	return err
}

func (u *UDPRouter) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
