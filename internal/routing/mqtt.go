package routing

import (
	"context"
	"fmt"
	"net/url"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"vn310d/internal/config"
)

// publisher is the part of paho.Client the router uses.
type publisher interface {
	Connect() paho.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

const defaultTimeout = 5 * time.Second

var newClientFn = func(o *paho.ClientOptions) publisher { return paho.NewClient(o) }

// MQTTRouter publishes poses at QoS 0 without retain. The client
// reconnects on its own after the first successful connect.
type MQTTRouter struct {
	client  publisher
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

// ClientOptions builds paho options from the routing config.
func ClientOptions(cfg config.RoutingConfig) (*paho.ClientOptions, error) {
	u, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, err
	}
	opts := paho.NewClientOptions()
	opts.AddBroker(u.Scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.Timeout).
		SetWriteTimeout(cfg.Timeout)

	user, pass := cfg.Username, cfg.Password
	if u.User != nil && user == "" {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if user != "" {
		opts.SetUsername(user)
		opts.SetPassword(pass)
	}
	return opts, nil
}

func NewMQTT(cfg config.RoutingConfig, logger *zap.Logger) *MQTTRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	r := &MQTTRouter{prefix: cfg.TopicPrefix, timeout: cfg.Timeout, log: logger}
	opts, err := ClientOptions(cfg)
	if err != nil {
		// Load has validated the URL already.
		opts = paho.NewClientOptions()
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		r.log.Info("mqtt connected", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		r.log.Warn("mqtt connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})
	r.client = newClientFn(opts)
	return r
}

// Connect makes the first connection attempt.
func (r *MQTTRouter) Connect(ctx context.Context) error {
	tok := r.client.Connect()
	if err := waitToken(ctx, tok, r.timeout); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (r *MQTTRouter) RouteMessage(payload []byte, board, tile int) error {
	if !r.client.IsConnected() {
		return ErrNotConnected
	}
	topic := Topic(r.prefix, board, tile)
	tok := r.client.Publish(topic, 0, false, payload)
	if err := waitToken(context.Background(), tok, r.timeout); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (r *MQTTRouter) Close() error {
	r.client.Disconnect(250)
	return nil
}

func waitToken(ctx context.Context, tok paho.Token, timeout time.Duration) error {
	done := make(chan bool, 1)
	go func() { done <- tok.WaitTimeout(timeout) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ok := <-done:
		if !ok {
			return fmt.Errorf("timed out after %s", timeout)
		}
		return tok.Error()
	}
}
