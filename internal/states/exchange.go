package states

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/infrastructure/mqtt"
)

// Action bus verbs.
const (
	actionGet = "get"
	actionSet = "set"
)

// actionQOS is the delivery level for action and state topics. At-least-once
// keeps requests from vanishing on a flaky link; handlers tolerate replays.
const actionQOS byte = 1

// BusClient is the MQTT surface the exchange layer depends on.
// mqtt.Client satisfies it.
type BusClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// actionDocument is the JSON payload of a GET or SET action message.
type actionDocument struct {
	EntityKind string         `json:"entity_kind"`
	PropertyID string         `json:"property_id"`
	OwnerID    string         `json:"owner_id"`
	Action     string         `json:"action"`
	ForDevice  bool           `json:"for_device,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// ExchangePublisher delivers get/set actions over the bus toward the
// process that owns a property's ground truth. Attaching one to a Manager
// switches that manager into exchange delivery mode.
type ExchangePublisher struct {
	bus    BusClient
	topics mqtt.Topics
	logger Logger
}

// NewExchangePublisher creates a publisher over the given bus client.
func NewExchangePublisher(bus BusClient) *ExchangePublisher {
	return &ExchangePublisher{bus: bus, logger: noopLogger{}}
}

// SetLogger sets the logger for the publisher.
func (e *ExchangePublisher) SetLogger(logger Logger) {
	e.logger = logger
}

// PublishGet publishes a GET action for the property.
func (e *ExchangePublisher) PublishGet(p *catalog.Property) error {
	return e.publish(p, actionDocument{
		EntityKind: string(p.EntityKind),
		PropertyID: p.ID,
		OwnerID:    p.OwnerID,
		Action:     actionGet,
	})
}

// PublishSet publishes a SET action carrying a partial value set.
func (e *ExchangePublisher) PublishSet(p *catalog.Property, fields map[string]any, forDevice bool) error {
	return e.publish(p, actionDocument{
		EntityKind: string(p.EntityKind),
		PropertyID: p.ID,
		OwnerID:    p.OwnerID,
		Action:     actionSet,
		ForDevice:  forDevice,
		Fields:     fields,
	})
}

func (e *ExchangePublisher) publish(p *catalog.Property, doc actionDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s action: %w", doc.Action, err)
	}

	topic := e.topics.PropertyAction(string(p.EntityKind), p.ID, doc.Action)
	if err := e.bus.Publish(topic, payload, actionQOS, false); err != nil {
		return fmt.Errorf("publishing %s action: %w", doc.Action, err)
	}

	e.logger.Debug("published property action", "topic", topic, "action", doc.Action)
	return nil
}

// Registry resolves property ids arriving on action topics.
// catalog.Registry satisfies it.
type Registry interface {
	GetProperty(ctx context.Context, id string) (*catalog.Property, error)
}

// Consumer subscribes to the action topics for one entity kind and executes
// the requests against the local manager. It runs in the process that owns
// the properties' ground truth; the manager it drives must be in local
// delivery mode.
//
// GET actions answer by publishing the current projection retained on the
// property's state topic. SET actions apply the carried fields; the
// resulting change event reaches the bus through the Broadcaster.
type Consumer struct {
	bus      BusClient
	registry Registry
	manager  *Manager
	topics   mqtt.Topics
	logger   Logger
}

// NewConsumer creates an action consumer for the manager's entity kind.
func NewConsumer(bus BusClient, registry Registry, manager *Manager) *Consumer {
	return &Consumer{
		bus:      bus,
		registry: registry,
		manager:  manager,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the consumer.
func (c *Consumer) SetLogger(logger Logger) {
	c.logger = logger
}

// Start subscribes to all action topics for the manager's entity kind.
func (c *Consumer) Start() error {
	pattern := c.topics.AllPropertyActions(string(c.manager.EntityKind()))
	if err := c.bus.Subscribe(pattern, actionQOS, c.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", pattern, err)
	}

	c.logger.Info("consuming property actions", "pattern", pattern)
	return nil
}

func (c *Consumer) handleMessage(topic string, payload []byte) error {
	propertyID, action, err := parseActionTopic(topic)
	if err != nil {
		c.logger.Warn("ignoring malformed action topic", "topic", topic, "error", err)
		return nil
	}

	ctx := context.Background()

	p, err := c.registry.GetProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("resolving property %s: %w", propertyID, err)
	}

	switch action {
	case actionGet:
		return c.handleGet(ctx, p)
	case actionSet:
		return c.handleSet(ctx, p, payload)
	default:
		c.logger.Warn("ignoring unknown property action", "topic", topic, "action", action)
		return nil
	}
}

func (c *Consumer) handleGet(ctx context.Context, p *catalog.Property) error {
	state, err := c.manager.ReadState(ctx, p)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", p.ID, err)
	}

	topic := c.topics.PropertyState(string(state.EntityKind), state.PropertyID)
	return c.bus.Publish(topic, payload, actionQOS, true)
}

func (c *Consumer) handleSet(ctx context.Context, p *catalog.Property, payload []byte) error {
	var doc actionDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		c.logger.Warn("ignoring malformed set action", "property", p.ID, "error", err)
		return nil
	}

	fields := FieldsFromMap(doc.Fields)
	if doc.ForDevice {
		return c.manager.Write(ctx, p, fields, "exchange")
	}
	return c.manager.Set(ctx, p, fields, "exchange")
}

// parseActionTopic extracts the property id and action verb from an action
// topic of the form emberhome/action/{kind}/{id}/{verb}.
func parseActionTopic(topic string) (propertyID, action string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[3] == "" || parts[4] == "" {
		return "", "", fmt.Errorf("unexpected action topic %q", topic)
	}
	return parts[3], parts[4], nil
}
