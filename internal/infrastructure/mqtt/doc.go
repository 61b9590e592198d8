// Package mqtt provides MQTT client connectivity for devices-core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// devices-core uses MQTT as the exchange bus connecting the module to
// connector processes and other consumers. Property GET/SET actions travel
// toward whichever process owns a property's ground truth; resulting state
// records are broadcast back on retained state topics.
//
//	devices-core ↔ MQTT Broker ↔ Connector Processes / Consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all channel property actions
//	err = client.Subscribe(mqtt.Topics{}.AllPropertyActions("channel"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a SET action
//	topic := mqtt.Topics{}.PropertyAction("channel", propertyID, "set")
//	client.Publish(topic, payload, 1, false)
package mqtt
