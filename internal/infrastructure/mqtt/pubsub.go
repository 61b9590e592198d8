package mqtt

import (
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadBytes caps outbound payloads. State and action documents are a
// few hundred bytes; anything approaching this limit is a caller bug.
const maxPayloadBytes = 1 << 20

// Publish sends payload to topic and waits for the broker ack.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: empty topic", ErrBadTopic)
	case qos > 2:
		return fmt.Errorf("%w: qos %d", ErrBadQoS, qos)
	case len(payload) > maxPayloadBytes:
		return fmt.Errorf("%w: payload of %d bytes exceeds %d limit",
			ErrPublishFailed, len(payload), maxPayloadBytes)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.paho.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: no ack for %s within %s", ErrPublishFailed, topic, ackTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. The subscription is tracked and
// replayed automatically after a reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: empty topic", ErrBadTopic)
	case qos > 2:
		return fmt.Errorf("%w: qos %d", ErrBadQoS, qos)
	case handler == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.stateMu.Lock()
	c.subs[topic] = activeSub{qos: qos, handler: handler}
	c.stateMu.Unlock()

	token := c.paho.Subscribe(topic, qos, c.dispatch(handler))
	if !token.WaitTimeout(ackTimeout) || token.Error() != nil {
		c.stateMu.Lock()
		delete(c.subs, topic)
		c.stateMu.Unlock()

		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
		return fmt.Errorf("%w: no ack for %s within %s", ErrSubscribeFailed, topic, ackTimeout)
	}
	return nil
}

// dispatch adapts a MessageHandler to paho's callback shape, recovering
// panics so one bad message cannot take the receive loop down.
func (c *Client) dispatch(handler MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("mqtt handler panic", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("mqtt handler error", "topic", msg.Topic(), "error", err)
		}
	}
}
