package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/emberhome/devices-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	ackTimeout     = 5 * time.Second
	keepAlive      = 60 * time.Second

	// Milliseconds granted to paho for in-flight messages on disconnect.
	shutdownQuiesce = 1000
)

// MessageHandler processes one inbound message. A returned error is logged;
// the message is not redelivered.
type MessageHandler func(topic string, payload []byte) error

// Logger is the minimal logging surface the client needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type activeSub struct {
	qos     byte
	handler MessageHandler
}

// Client wraps a paho connection for the action/state bus. It tracks
// subscriptions so they are replayed after a broker reconnect, announces
// liveness on the system status topic (with an LWT for crashes), and runs
// every inbound message through a panic-safe dispatcher.
type Client struct {
	paho paho.Client
	cfg  config.MQTTConfig

	stateMu sync.RWMutex
	online  bool
	subs    map[string]activeSub

	hookMu       sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Connect dials the broker and blocks until the session is established or
// the connect timeout elapses. Reconnects after that are automatic.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:  cfg,
		subs: make(map[string]activeSub),
	}

	opts := pahoOptions(cfg)
	opts.SetWill(Topics{}.SystemStatus(),
		string(statusPayload(cfg.Broker.ClientID, "offline", "connection_lost")), 1, true)
	opts.SetOnConnectHandler(func(paho.Client) { c.brokerUp() })
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) { c.brokerDown(err) })

	c.paho = paho.NewClient(opts)

	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: %s:%d did not answer within %s",
			ErrConnectFailed, cfg.Broker.Host, cfg.Broker.Port, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	return c, nil
}

// pahoOptions translates broker config into paho client options.
func pahoOptions(cfg config.MQTTConfig) *paho.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetOrderMatters(false)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	return opts
}

// brokerUp runs on every (re)connect: mark online, replay tracked
// subscriptions, announce liveness, then fire the caller hook.
func (c *Client) brokerUp() {
	c.stateMu.Lock()
	c.online = true
	subs := make(map[string]activeSub, len(c.subs))
	for topic, s := range c.subs {
		subs[topic] = s
	}
	c.stateMu.Unlock()

	for topic, s := range subs {
		token := c.paho.Subscribe(topic, s.qos, c.dispatch(s.handler))
		if !token.WaitTimeout(ackTimeout) || token.Error() != nil {
			c.log().Error("mqtt resubscribe failed", "topic", topic, "error", token.Error())
		}
	}

	c.paho.Publish(Topics{}.SystemStatus(), 1, true,
		statusPayload(c.cfg.Broker.ClientID, "online", ""))

	c.hookMu.RLock()
	hook := c.onConnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

// brokerDown runs when paho loses the session; auto-reconnect takes over
// after the caller hook fires.
func (c *Client) brokerDown(err error) {
	c.stateMu.Lock()
	c.online = false
	c.stateMu.Unlock()

	c.log().Warn("mqtt connection lost", "error", err)

	c.hookMu.RLock()
	hook := c.onDisconnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// Close announces a clean shutdown on the status topic, then disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	c.stateMu.Lock()
	c.online = false
	c.stateMu.Unlock()

	if c.paho.IsConnected() {
		token := c.paho.Publish(Topics{}.SystemStatus(), 1, true,
			statusPayload(c.cfg.Broker.ClientID, "offline", "shutdown"))
		token.WaitTimeout(ackTimeout)
	}

	c.paho.Disconnect(shutdownQuiesce)
	return nil
}

// HealthCheck reports whether the session is currently established.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() || !c.paho.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known session state without touching the
// network.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.online
}

// SetOnConnect registers a hook fired after every successful (re)connect,
// once subscriptions have been replayed.
func (c *Client) SetOnConnect(hook func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onConnect = hook
}

// SetOnDisconnect registers a hook fired when the session is lost.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onDisconnect = hook
}

// SetLogger routes client diagnostics to the given logger. Without one the
// client stays silent.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.logger = logger
}

func (c *Client) log() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	if c.logger == nil {
		return discardLogger{}
	}
	return c.logger
}

type discardLogger struct{}

func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// statusDoc is the retained liveness document on the system status topic.
type statusDoc struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Reason   string `json:"reason,omitempty"`
	At       string `json:"timestamp"`
}

func statusPayload(clientID, status, reason string) []byte {
	b, _ := json.Marshal(statusDoc{
		Status:   status,
		ClientID: clientID,
		Reason:   reason,
		At:       time.Now().UTC().Format(time.RFC3339),
	})
	return b
}
